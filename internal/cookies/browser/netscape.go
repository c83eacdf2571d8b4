package browser

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// ParseNetscape reads cookies from a Netscape cookies.txt file.
// Lines starting with # are comments, except #HttpOnly_ which marks the
// cookie HttpOnly. Malformed lines are skipped with a warning.
func ParseNetscape(filePath string, domain string, logger *slog.Logger) ([]*cookies.Cookie, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open Netscape cookie file: %w", err)
	}
	defer f.Close()

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	now := time.Now()
	var result []*cookies.Cookie

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if line == "" {
			continue
		}

		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			httpOnly = true
			line = line[len("#HttpOnly_"):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			logger.Warn("skipping malformed cookie line", "line", lineNo)
			continue
		}

		cookieDomain := fields[0]
		cookiePath := fields[2]
		secure := strings.EqualFold(fields[3], "TRUE")
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			logger.Warn("skipping cookie with invalid expiry", "line", lineNo, "name", fields[5])
			continue
		}

		if domain != "" && !matchesDomain(cookieDomain, domain) {
			continue
		}

		// Zero expiry is a session cookie.
		var expires time.Time
		if expiry > 0 {
			expires = time.Unix(expiry, 0)
			if expires.Before(now) {
				continue
			}
		}

		result = append(result, newCookie(fields[5], fields[6], cookieDomain, cookiePath, expires, secure, httpOnly, ""))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Netscape cookie file: %w", err)
	}

	return result, nil
}

// matchesDomain reports whether cookieDomain is domain, .domain or a subdomain of it.
func matchesDomain(cookieDomain, domain string) bool {
	dotDomain := "." + domain
	if cookieDomain == domain || cookieDomain == dotDomain {
		return true
	}
	return strings.HasSuffix(cookieDomain, dotDomain)
}
