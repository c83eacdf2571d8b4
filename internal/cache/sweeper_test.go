package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededIndex() *DomainIndex {
	idx := NewDomainIndex()
	secure := cookie(".example.com", "sid")
	secure.Secure = true
	idx.Add(secure)
	idx.Add(cookie("example.com", "pref"))
	idx.Add(cookie("ads.example.com", "track"))
	idx.Add(cookie("news.org", "n"))
	return idx
}

func TestSweeper_DeleteAllExceptProtected(t *testing.T) {
	idx := NewDomainIndex()
	idx.Add(cookie("example.com", "c1"))
	idx.Add(cookie("ads.example.com", "c2"))
	store := newFakeStore()

	s := NewSweeper(idx, store, []string{"ads"}, nil)
	result, err := s.DeleteAllExceptProtected(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Requested: 1}, result)
	assert.Equal(t, []string{"http://example.com/#c1"}, store.removalRequests())
}

func TestSweeper_DeleteDomain(t *testing.T) {
	store := newFakeStore()
	s := NewSweeper(seededIndex(), store, nil, nil)

	result, err := s.DeleteDomain(context.Background(), ".example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Requested)
	assert.Equal(t, []string{"https://.example.com/#sid"}, store.removalRequests())
}

func TestSweeper_DeleteDomainUnknown(t *testing.T) {
	store := newFakeStore()
	s := NewSweeper(seededIndex(), store, nil, nil)

	result, err := s.DeleteDomain(context.Background(), "missing.com")
	require.NoError(t, err)
	assert.Zero(t, result.Requested)
	assert.Empty(t, store.removalRequests())
}

func TestSweeper_DeleteFiltered(t *testing.T) {
	store := newFakeStore()
	s := NewSweeper(seededIndex(), store, nil, nil)

	result, err := s.DeleteFiltered(context.Background(), "example")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, []string{
		"https://.example.com/#sid",
		"http://ads.example.com/#track",
		"http://example.com/#pref",
	}, store.removalRequests())
}

func TestSweeper_DoesNotTouchIndex(t *testing.T) {
	idx := seededIndex()
	store := newFakeStore()
	s := NewSweeper(idx, store, nil, nil)

	_, err := s.DeleteFiltered(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Total())
}

func TestSweeper_ContinuesPastFailures(t *testing.T) {
	store := newFakeStore()
	storeErr := errors.New("store unreachable")
	store.failFor["pref"] = storeErr

	s := NewSweeper(seededIndex(), store, nil, nil)
	result, err := s.DeleteFiltered(context.Background(), "example")

	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, Result{Requested: 3, Failed: 1}, result)
	assert.Len(t, store.removalRequests(), 3)
}

func TestSweeper_CanceledContext(t *testing.T) {
	store := newFakeStore()
	s := NewSweeper(seededIndex(), store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.DeleteFiltered(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Requested)
}

func TestSweeper_IsProtected(t *testing.T) {
	s := NewSweeper(NewDomainIndex(), newFakeStore(), []string{"bank", "mail"}, nil)

	assert.True(t, s.IsProtected("mybank.com"))
	assert.True(t, s.IsProtected(".mail.example.com"))
	assert.False(t, s.IsProtected("Bank.com"), "match is case-sensitive")
	assert.False(t, s.IsProtected("example.com"))
	assert.Equal(t, []string{"bank", "mail"}, s.Protected())
}
