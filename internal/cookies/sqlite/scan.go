package sqlite

import (
	"database/sql"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// record is a stored cookie plus its bookkeeping columns.
type record struct {
	*cookies.Cookie
	CreatedAt time.Time
	UpdatedAt time.Time
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanCookie(row scannable) (*record, error) {
	c := &cookies.Cookie{}
	r := &record{Cookie: c}
	var hostOnly, secure, httpOnly, session int
	var sameSite sql.NullString
	var expires sql.NullTime

	err := row.Scan(
		&c.ID, &c.StoreID, &c.Domain, &hostOnly, &c.Path, &c.Name, &c.Value,
		&secure, &httpOnly, &session, &sameSite, &expires,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, cookies.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.HostOnly = intToBool(hostOnly)
	c.Secure = intToBool(secure)
	c.HttpOnly = intToBool(httpOnly)
	c.Session = intToBool(session)
	if sameSite.Valid {
		c.SameSite = sameSite.String
	}
	if expires.Valid {
		c.Expires = expires.Time
	}

	return r, nil
}

func scanCookies(rows *sql.Rows) ([]*record, error) {
	var result []*record
	for rows.Next() {
		r, err := scanCookie(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
