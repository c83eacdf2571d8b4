package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// Source describes where cookies were imported from.
type Source struct {
	Path   string
	Format Format
}

// Import reads cookies from a browser cookie file. It detects the format,
// copies SQLite files before opening them, and returns the parsed cookies.
// A non-empty domain limits the import to that domain and its subdomains.
func Import(sourcePath string, domain string, logger *slog.Logger) ([]*cookies.Cookie, *Source, error) {
	format, err := DetectFormat(sourcePath)
	if err != nil {
		return nil, nil, err
	}

	source := &Source{
		Path:   sourcePath,
		Format: format,
	}

	var result []*cookies.Cookie
	switch format {
	case FormatFirefox:
		result, err = importSQLite(sourcePath, domain, ParseFirefox, logger)
	case FormatChrome:
		result, err = importSQLite(sourcePath, domain, ParseChrome, logger)
	case FormatNetscape:
		result, err = ParseNetscape(sourcePath, domain, logger)
	default:
		return nil, nil, fmt.Errorf("unsupported cookie file format at %s", sourcePath)
	}
	if err != nil {
		return nil, nil, err
	}

	return result, source, nil
}

func importSQLite(sourcePath, domain string, parser func(string, string) ([]*cookies.Cookie, error), logger *slog.Logger) ([]*cookies.Cookie, error) {
	snap, err := SafeCopy(sourcePath, logger)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	return parser(snap.Path, domain)
}

// newCookie normalizes a browser row. Browsers mark domain cookies with a
// leading dot; anything else is host-only.
func newCookie(name, value, domain, path string, expires time.Time, secure, httpOnly bool, sameSite string) *cookies.Cookie {
	if path == "" {
		path = "/"
	}
	return &cookies.Cookie{
		Name:     name,
		Value:    value,
		Domain:   domain,
		HostOnly: len(domain) > 0 && domain[0] != '.',
		Path:     path,
		Secure:   secure,
		HttpOnly: httpOnly,
		Session:  expires.IsZero(),
		StoreID:  cookies.DefaultStoreID,
		SameSite: sameSite,
		Expires:  expires,
	}
}
