package browser

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// Format identifies the format of a browser cookie file.
type Format int

const (
	FormatUnknown Format = iota
	FormatFirefox
	FormatChrome
	FormatNetscape
)

// String returns the browser name for the format.
func (f Format) String() string {
	switch f {
	case FormatFirefox:
		return "Firefox"
	case FormatChrome:
		return "Chrome"
	case FormatNetscape:
		return "Netscape"
	default:
		return "unknown"
	}
}

// sqliteMagic is the first 16 bytes of any SQLite database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// DetectFormat determines the cookie file format at path.
func DetectFormat(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cookie file not found: %s", path)
	}
	if info.IsDir() {
		return FormatUnknown, fmt.Errorf("%s is a directory, expected a cookie file", path)
	}
	if info.Size() == 0 {
		return FormatUnknown, fmt.Errorf("cookie file at %s is empty or corrupted", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot open cookie file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot read cookie file: %w", err)
	}
	buf = buf[:n]

	if n >= len(sqliteMagic) && string(buf[:len(sqliteMagic)]) == string(sqliteMagic) {
		return detectSQLiteFormat(path)
	}

	firstLine := string(buf)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	firstLine = strings.TrimRight(firstLine, "\r")

	if firstLine == "# Netscape HTTP Cookie File" || firstLine == "# HTTP Cookie File" {
		return FormatNetscape, nil
	}

	return FormatUnknown, fmt.Errorf("unsupported cookie file format at %s", path)
}

// detectSQLiteFormat checks which cookie table the database has.
func detectSQLiteFormat(path string) (Format, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot open SQLite database: %w", err)
	}
	defer db.Close()

	var tableName string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='moz_cookies'`).Scan(&tableName)
	if err == nil {
		return FormatFirefox, nil
	}

	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='cookies'`).Scan(&tableName)
	if err == nil {
		return FormatChrome, nil
	}

	return FormatUnknown, fmt.Errorf("unsupported cookie database schema at %s", path)
}
