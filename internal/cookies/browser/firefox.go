package browser

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
	_ "modernc.org/sqlite"
)

// ParseFirefox reads unexpired cookies from a Firefox cookies.sqlite file.
// The dbPath should point at a copy, not the database the browser holds open.
// A non-empty domain limits the result to that domain and its subdomains.
func ParseFirefox(dbPath string, domain string) ([]*cookies.Cookie, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("cannot open Firefox cookie database: %w", err)
	}
	defer db.Close()

	query := `
		SELECT name, value, host, path, expiry, isSecure, isHttpOnly, sameSite
		FROM moz_cookies
		WHERE expiry > ?`
	args := []interface{}{time.Now().Unix()}
	if domain != "" {
		query += ` AND (host = ? OR host = ? OR host LIKE ?)`
		args = append(args, domain, "."+domain, "%."+domain)
	}
	query += ` ORDER BY host, path, name`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query Firefox cookies: %w", err)
	}
	defer rows.Close()

	var result []*cookies.Cookie
	for rows.Next() {
		var (
			name, value, host, path        string
			expiry                         int64
			isSecure, isHttpOnly, sameSite int
		)
		if err := rows.Scan(&name, &value, &host, &path, &expiry, &isSecure, &isHttpOnly, &sameSite); err != nil {
			return nil, fmt.Errorf("failed to scan Firefox cookie row: %w", err)
		}
		result = append(result, newCookie(name, value, host, path, time.Unix(expiry, 0), isSecure != 0, isHttpOnly != 0, firefoxSameSite(sameSite)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate Firefox cookie rows: %w", err)
	}

	return result, nil
}

func firefoxSameSite(v int) string {
	switch v {
	case 1:
		return "lax"
	case 2:
		return "strict"
	default:
		return "no_restriction"
	}
}
