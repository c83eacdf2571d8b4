package cache

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"go.trai.ch/zerr"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// ErrRemoveFailed describes a per-cookie failure in a sweep.
var ErrRemoveFailed = zerr.New("cookie removal failed")

// Selector returns the cached cookies of every domain match accepts.
type Selector interface {
	Select(match func(domain string) bool) []*cookies.Cookie
}

// Remover asks the external store to delete one cookie.
type Remover interface {
	Remove(ctx context.Context, rawURL, name string) error
}

// Result summarizes a sweep.
type Result struct {
	Requested int `json:"requested"`
	Failed    int `json:"failed"`
}

// Sweeper computes deletion scopes and issues one removal per selected cookie.
// It never touches the index: cookies disappear from the cache only when the
// store's removal notification arrives.
type Sweeper struct {
	source    Selector
	store     Remover
	protected []string
	logger    *slog.Logger
}

// NewSweeper creates a sweeper. protected lists the domain substrings that
// DeleteAllExceptProtected leaves alone.
func NewSweeper(source Selector, store Remover, protected []string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{
		source:    source,
		store:     store,
		protected: slices.Clone(protected),
		logger:    logger,
	}
}

// IsProtected reports whether domain contains a protection keyword.
func (s *Sweeper) IsProtected(domain string) bool {
	for _, keyword := range s.protected {
		if strings.Contains(domain, keyword) {
			return true
		}
	}
	return false
}

// Protected returns the protection keywords.
func (s *Sweeper) Protected() []string {
	return slices.Clone(s.protected)
}

// DeleteDomain removes every cookie cached under domain.
func (s *Sweeper) DeleteDomain(ctx context.Context, domain string) (Result, error) {
	return s.sweep(ctx, "domain", s.source.Select(func(d string) bool {
		return d == domain
	}))
}

// DeleteFiltered removes every cookie under the domains currently matching filter.
func (s *Sweeper) DeleteFiltered(ctx context.Context, filter string) (Result, error) {
	return s.sweep(ctx, "filtered", s.source.Select(func(d string) bool {
		return filter == "" || strings.Contains(d, filter)
	}))
}

// DeleteAllExceptProtected removes every cookie whose domain contains no
// protection keyword.
func (s *Sweeper) DeleteAllExceptProtected(ctx context.Context) (Result, error) {
	return s.sweep(ctx, "all", s.source.Select(func(d string) bool {
		return !s.IsProtected(d)
	}))
}

func (s *Sweeper) sweep(ctx context.Context, scope string, targets []*cookies.Cookie) (Result, error) {
	var (
		result Result
		errs   []error
	)

	for _, c := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result.Requested++
		if err := s.store.Remove(ctx, c.RemovalURL(), c.Name); err != nil {
			result.Failed++
			errs = append(errs, zerr.With(
				zerr.With(zerr.Wrap(err, ErrRemoveFailed.Error()), "domain", c.Domain),
				"name", c.Name,
			))
			s.logger.Warn("failed to remove cookie", "domain", c.Domain, "name", c.Name, "error", err)
		}
	}

	s.logger.Info("sweep requested",
		"scope", scope,
		"selected", len(targets),
		"requested", result.Requested,
		"failed", result.Failed,
	)

	return result, errors.Join(errs...)
}
