package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const cookieColumns = "id, store_id, domain, host_only, path, name, value, secure, http_only, session, same_site, expires, created_at, updated_at"

// Store implements cookies.WritableStore using SQLite. Every mutation is
// reported to subscribers through an ordered change feed.
type Store struct {
	mu       sync.RWMutex
	db       *sql.DB
	closed   bool
	notifier *cookies.Notifier
}

// New creates a new SQLite-based cookie store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie database: %w", err)
	}

	return newStore(db)
}

// NewInMemory creates a new in-memory SQLite store (useful for testing).
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cookie database: %w", err)
	}
	store.notifier = cookies.NewNotifier(0)
	return store, nil
}

// initialize creates the necessary tables and indexes.
func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cookies (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			host_only INTEGER NOT NULL DEFAULT 0,
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			secure INTEGER NOT NULL DEFAULT 0,
			http_only INTEGER NOT NULL DEFAULT 0,
			session INTEGER NOT NULL DEFAULT 0,
			same_site TEXT,
			expires DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(store_id, domain, path, name)
		);

		CREATE INDEX IF NOT EXISTS idx_cookies_domain ON cookies(domain);
		CREATE INDEX IF NOT EXISTS idx_cookies_expires ON cookies(expires);
		CREATE INDEX IF NOT EXISTS idx_cookies_name ON cookies(name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Subscribe registers a change listener.
func (s *Store) Subscribe(l cookies.ChangeListener) {
	s.notifier.Subscribe(l)
}

// Unsubscribe removes a change listener.
func (s *Store) Unsubscribe(l cookies.ChangeListener) {
	s.notifier.Unsubscribe(l)
}

// Set stores or updates a cookie. Replacing an existing cookie with the same
// store, domain, path and name is reported as a removal of the old cookie
// (cause overwrite) followed by an addition of the new one.
func (s *Store) Set(ctx context.Context, cookie *cookies.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}

	if cookie.StoreID == "" {
		cookie.StoreID = cookies.DefaultStoreID
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+cookieColumns+` FROM cookies
		WHERE store_id = ? AND domain = ? AND path = ? AND name = ?
	`, cookie.StoreID, cookie.Domain, cookie.Path, cookie.Name)
	previous, err := scanCookie(row)
	if err != nil && err != cookies.ErrNotFound {
		return err
	}

	now := time.Now()
	createdAt := now
	if previous != nil {
		cookie.ID = previous.ID
		createdAt = previous.CreatedAt
		if _, err := tx.ExecContext(ctx, `DELETE FROM cookies WHERE id = ?`, previous.ID); err != nil {
			return err
		}
	}
	if cookie.ID == "" {
		cookie.ID = uuid.New().String()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cookies (`+cookieColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cookie.ID, cookie.StoreID, cookie.Domain, boolToInt(cookie.HostOnly),
		cookie.Path, cookie.Name, cookie.Value,
		boolToInt(cookie.Secure), boolToInt(cookie.HttpOnly), boolToInt(cookie.Session),
		cookie.SameSite, nullTime(cookie.Expires), createdAt, now,
	)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if previous != nil {
		s.notifier.Emit(cookies.ChangeEvent{Cookie: previous.Cookie, Removed: true, Cause: cookies.CauseOverwrite})
	}
	added := *cookie
	s.notifier.Emit(cookies.ChangeEvent{Cookie: &added, Cause: cookies.CauseExplicit})
	return nil
}

// Get retrieves a cookie by domain, path, and name from the default store.
func (s *Store) Get(ctx context.Context, domain, path, name string) (*cookies.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, cookies.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+cookieColumns+` FROM cookies
		WHERE store_id = ? AND domain = ? AND path = ? AND name = ?
	`, cookies.DefaultStoreID, domain, path, name)

	r, err := scanCookie(row)
	if err != nil {
		return nil, err
	}
	return r.Cookie, nil
}

// GetAll returns every unexpired cookie.
func (s *Store) GetAll(ctx context.Context) ([]*cookies.Cookie, error) {
	return s.List(ctx, cookies.QueryOptions{})
}

// List returns cookies matching the query options.
func (s *Store) List(ctx context.Context, opts cookies.QueryOptions) ([]*cookies.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, cookies.ErrStoreClosed
	}

	rows, err := s.query(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := make([]*cookies.Cookie, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.Cookie)
	}
	return result, nil
}

func (s *Store) query(ctx context.Context, opts cookies.QueryOptions) ([]*record, error) {
	var conditions []string
	var args []interface{}

	if opts.Domain != "" {
		conditions = append(conditions, "domain = ?")
		args = append(args, opts.Domain)
	}

	if opts.Name != "" {
		conditions = append(conditions, "name = ?")
		args = append(args, opts.Name)
	}

	if !opts.IncludeExpired {
		conditions = append(conditions, "(session = 1 OR expires IS NULL OR expires > ?)")
		args = append(args, time.Now())
	}

	query := "SELECT " + cookieColumns + " FROM cookies"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY domain, path, name"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCookies(rows)
}

// Remove deletes the cookies named name that would be sent to rawURL: the
// domain must be the URL host (with or without a leading dot), the cookie
// path must path-match the URL path, and secure cookies need an https URL.
// Each deleted cookie is reported as a removal. Nothing matching is not an error.
func (s *Store) Remove(ctx context.Context, rawURL, name string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", cookies.ErrInvalidURL, rawURL)
	}
	host := strings.TrimPrefix(u.Hostname(), ".")
	requestPath := u.Path
	if requestPath == "" {
		requestPath = "/"
	}
	secure := u.Scheme == "https"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cookieColumns+` FROM cookies
		WHERE name = ? AND (domain = ? OR domain = ?)
	`, name, host, "."+host)
	if err != nil {
		return err
	}
	candidates, err := scanCookies(rows)
	rows.Close()
	if err != nil {
		return err
	}

	var removed []*record
	for _, r := range candidates {
		if r.Secure && !secure {
			continue
		}
		if !pathMatch(requestPath, r.Path) {
			continue
		}
		removed = append(removed, r)
	}

	return s.deleteRecords(ctx, removed, cookies.CauseExplicit)
}

// DeleteExpired removes all expired cookies and returns count.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, cookies.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cookieColumns+` FROM cookies
		WHERE session = 0 AND expires IS NOT NULL AND expires <= ?
	`, time.Now())
	if err != nil {
		return 0, err
	}
	expired, err := scanCookies(rows)
	rows.Close()
	if err != nil {
		return 0, err
	}

	if err := s.deleteRecords(ctx, expired, cookies.CauseExpired); err != nil {
		return 0, err
	}
	return int64(len(expired)), nil
}

// Clear removes all cookies, reporting each one.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}

	all, err := s.query(ctx, cookies.QueryOptions{IncludeExpired: true})
	if err != nil {
		return err
	}
	return s.deleteRecords(ctx, all, cookies.CauseExplicit)
}

// deleteRecords deletes rows in one transaction and emits their removals
// once it commits. Callers hold s.mu.
func (s *Store) deleteRecords(ctx context.Context, records []*record, cause cookies.ChangeCause) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cookies WHERE id = ?`, r.ID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, r := range records {
		s.notifier.Emit(cookies.ChangeEvent{Cookie: r.Cookie, Removed: true, Cause: cause})
	}
	return nil
}

// Count returns total number of cookies.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, cookies.ErrStoreClosed
	}

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cookies`).Scan(&count)
	return count, err
}

// Close closes the store after delivering pending notifications.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.notifier.Close()
	return s.db.Close()
}

// pathMatch implements the RFC 6265 path-match rule.
func pathMatch(requestPath, cookiePath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}

var _ cookies.WritableStore = (*Store)(nil)
