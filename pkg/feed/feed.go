// Package feed keeps an in-memory, paginated view of the shared book
// feed in sync with the server. Posts fetched across pages are merged
// by identity, refreshes replace the list outright, and deletions are
// confirmed by the server before the local list changes.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bookworm/pkg/domain"
)

const (
	// DefaultPageLimit matches the page size the list view requests.
	DefaultPageLimit = 2
	// DefaultMinRefreshVisible keeps the refresh indicator on screen
	// long enough to be seen. Tests set it to zero.
	DefaultMinRefreshVisible = 800 * time.Millisecond
)

// API is the slice of the HTTP client the synchronizer needs.
type API interface {
	ListBooks(ctx context.Context, token string, page, limit int) (domain.BookPage, error)
	DeleteBook(ctx context.Context, token, id string) error
}

// TokenSource supplies the current session token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// State is a point-in-time snapshot of the synchronizer.
type State struct {
	Posts           []domain.Book
	Page            int
	HasMore         bool
	Loading         bool
	Refreshing      bool
	PendingDeleteID string
}

// Options tune a Synchronizer. The zero value selects defaults.
type Options struct {
	PageLimit         int
	MinRefreshVisible time.Duration
	Logger            *slog.Logger
}

// Synchronizer owns the feed state. Methods are safe for concurrent
// use; a completion from a superseded load never overwrites the state
// produced by a newer one.
type Synchronizer struct {
	api        API
	tokens     TokenSource
	pageLimit  int
	minVisible time.Duration
	logger     *slog.Logger

	mu              sync.Mutex
	posts           []domain.Book
	page            int
	hasMore         bool
	loading         bool
	refreshing      bool
	pendingDeleteID string
	loadSeq         uint64
}

// New builds a synchronizer over the given API and token source.
func New(api API, tokens TokenSource, opts Options) *Synchronizer {
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synchronizer{
		api:        api,
		tokens:     tokens,
		pageLimit:  opts.PageLimit,
		minVisible: opts.MinRefreshVisible,
		logger:     opts.Logger,
		page:       1,
	}
}

// State returns a snapshot of the current feed state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]domain.Book, len(s.posts))
	copy(posts, s.posts)
	return State{
		Posts:           posts,
		Page:            s.page,
		HasMore:         s.hasMore,
		Loading:         s.loading,
		Refreshing:      s.refreshing,
		PendingDeleteID: s.pendingDeleteID,
	}
}

// Load fetches the given page and merges it into the feed. A refresh,
// or a fetch of page 1, replaces the list; any other page appends.
// Without a session token it clears the activity flags and returns
// without touching the network.
func (s *Synchronizer) Load(ctx context.Context, pageNum int, isRefresh bool) error {
	token := s.tokens.Token()
	if token == "" {
		s.mu.Lock()
		s.loading = false
		s.refreshing = false
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	if isRefresh {
		s.refreshing = true
	} else if pageNum == 1 {
		s.loading = true
	}
	s.mu.Unlock()

	started := time.Now()
	page, err := s.api.ListBooks(ctx, token, pageNum, s.pageLimit)

	if isRefresh {
		s.holdRefreshVisible(ctx, started)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// cleanup runs even for superseded loads; only the state mutation
	// below is gated by staleness
	if isRefresh {
		s.refreshing = false
	} else {
		s.loading = false
	}
	if seq != s.loadSeq {
		// a newer load owns the state now
		s.logger.Debug("discarding stale feed load", "page", pageNum)
		return nil
	}
	if err != nil {
		s.logger.Warn("feed load failed", "page", pageNum, "err", err)
		return err
	}

	replace := isRefresh || pageNum == 1
	s.posts = mergePosts(s.posts, page.Books, replace)
	s.page = pageNum
	s.hasMore = pageNum < page.TotalPages
	return nil
}

// Refresh re-fetches page 1 and replaces the feed.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	return s.Load(ctx, 1, true)
}

// LoadMore fetches the next page. It is a no-op while a load or
// refresh is in flight, or when the server has no further pages.
func (s *Synchronizer) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore || s.loading || s.refreshing {
		s.mu.Unlock()
		return nil
	}
	next := s.page + 1
	s.mu.Unlock()
	return s.Load(ctx, next, false)
}

// Delete asks the server to remove the post, and drops it from the
// local feed only after the server confirms. PendingDeleteID marks the
// row for the duration of the round trip.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	token := s.tokens.Token()
	if token == "" {
		return nil
	}

	s.mu.Lock()
	s.pendingDeleteID = id
	s.mu.Unlock()

	err := s.api.DeleteBook(ctx, token, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDeleteID = ""
	if err != nil {
		s.logger.Warn("delete failed", "id", id, "err", err)
		return err
	}
	kept := s.posts[:0:0]
	for _, p := range s.posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.posts = kept
	return nil
}

// holdRefreshVisible sleeps out the remainder of the minimum visible
// refresh duration, releasing early on context cancellation.
func (s *Synchronizer) holdRefreshVisible(ctx context.Context, started time.Time) {
	remaining := s.minVisible - time.Since(started)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// mergePosts combines the existing list with a fetched page,
// deduplicated by identity with first occurrence winning. With replace
// set, the fetched page alone becomes the list.
func mergePosts(prev, fetched []domain.Book, replace bool) []domain.Book {
	var combined []domain.Book
	if replace {
		combined = fetched
	} else {
		combined = make([]domain.Book, 0, len(prev)+len(fetched))
		combined = append(combined, prev...)
		combined = append(combined, fetched...)
	}

	seen := make(map[string]struct{}, len(combined))
	out := make([]domain.Book, 0, len(combined))
	for _, p := range combined {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
