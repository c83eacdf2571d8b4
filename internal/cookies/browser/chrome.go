package browser

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
	_ "modernc.org/sqlite"
)

// chromeEpochOffsetSeconds is the number of seconds between the Windows NT epoch
// (1601-01-01 00:00:00 UTC) and the Unix epoch (1970-01-01 00:00:00 UTC).
const chromeEpochOffsetSeconds int64 = 11_644_473_600

// chromeToUnix converts a Chrome timestamp (microseconds since 1601-01-01)
// to a Unix timestamp (seconds since 1970-01-01).
func chromeToUnix(chromeUSec int64) int64 {
	return (chromeUSec / 1_000_000) - chromeEpochOffsetSeconds
}

// ParseChrome reads cookies from a Chrome Cookies SQLite file. Encrypted
// cookies (empty value column) are skipped. expires_utc of zero marks a
// session cookie.
func ParseChrome(dbPath string, domain string) ([]*cookies.Cookie, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("cannot open Chrome cookie database: %w", err)
	}
	defer db.Close()

	nowChrome := (time.Now().Unix() + chromeEpochOffsetSeconds) * 1_000_000

	query := `
		SELECT name, value, host_key, path, expires_utc, is_secure, is_httponly, samesite
		FROM cookies
		WHERE value != ''
		  AND (expires_utc = 0 OR expires_utc > ?)`
	args := []interface{}{nowChrome}
	if domain != "" {
		query += ` AND (host_key = ? OR host_key = ? OR host_key LIKE ?)`
		args = append(args, domain, "."+domain, "%."+domain)
	}
	query += ` ORDER BY host_key, path, name`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query Chrome cookies: %w", err)
	}
	defer rows.Close()

	var result []*cookies.Cookie
	for rows.Next() {
		var (
			name, value, hostKey, path     string
			expiresUTC                     int64
			isSecure, isHttpOnly, sameSite int
		)
		if err := rows.Scan(&name, &value, &hostKey, &path, &expiresUTC, &isSecure, &isHttpOnly, &sameSite); err != nil {
			return nil, fmt.Errorf("failed to scan Chrome cookie row: %w", err)
		}
		var expires time.Time
		if expiresUTC != 0 {
			expires = time.Unix(chromeToUnix(expiresUTC), 0)
		}
		result = append(result, newCookie(name, value, hostKey, path, expires, isSecure != 0, isHttpOnly != 0, chromeSameSite(sameSite)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate Chrome cookie rows: %w", err)
	}

	return result, nil
}

func chromeSameSite(v int) string {
	switch v {
	case 0:
		return "no_restriction"
	case 1:
		return "lax"
	case 2:
		return "strict"
	default:
		return "unspecified"
	}
}
