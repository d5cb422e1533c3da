// Package thread keeps a parent entity's comment thread in sync with the API:
// paged loading, submission, and the cache updates that follow.
package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evcraddock/collective-threads/internal/cache"
	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
)

var (
	// ErrBusy is returned when a load is requested while another is in flight.
	ErrBusy = errors.New("a load is already in progress")
	// ErrClosed is returned once the store has been closed.
	ErrClosed = errors.New("thread store closed")
	// ErrNotLoaded is returned by operations that need a loaded page.
	ErrNotLoaded = errors.New("thread not loaded")
)

// Fetcher reads comment pages. *client.Client implements it.
type Fetcher interface {
	GetComments(ctx context.Context, parent comment.Parent, limit, offset int) (*comment.Page, error)
}

// State is the lifecycle stage of a Store.
type State int

const (
	Empty State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Key returns the cache key a parent's merged page lives under. Later pages
// are folded into the offset-0 entry, so offset is always zero here.
func Key(parent comment.Parent, limit int) cache.Key {
	if limit <= 0 {
		limit = comment.DefaultPageSize
	}
	return cache.Key{
		Query:  client.CommentsOperation(parent.Kind),
		Parent: parent,
		Limit:  limit,
		Offset: 0,
	}
}

// Store is the client-side view of one parent's comments.
//
// Loads are serialised: a second Load or LoadMore while one is in flight
// returns ErrBusy. After Close, results of in-flight fetches are dropped.
type Store struct {
	fetcher Fetcher
	pages   *cache.Cache
	parent  comment.Parent
	limit   int
	key     cache.Key

	mu     sync.Mutex
	state  State
	last   comment.Page
	closed bool
}

// NewStore creates a store for parent. limit <= 0 uses the default page size.
func NewStore(f Fetcher, pages *cache.Cache, parent comment.Parent, limit int) *Store {
	if limit <= 0 {
		limit = comment.DefaultPageSize
	}
	s := &Store{
		fetcher: f,
		pages:   pages,
		parent:  parent,
		limit:   limit,
		key:     Key(parent, limit),
	}
	pages.Retain(s.key)
	return s
}

// Parent returns the entity this store tracks.
func (s *Store) Parent() comment.Parent {
	return s.parent
}

// Limit returns the page size.
func (s *Store) Limit() int {
	return s.limit
}

// State returns the current lifecycle stage.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Page returns the current view. The shared cache wins over the store's own
// copy so that submissions made through any Submitter are visible.
func (s *Store) Page() (comment.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

// current must be called with mu held.
func (s *Store) current() (comment.Page, bool) {
	if s.state == Empty {
		return comment.Page{}, false
	}
	if p, ok := s.pages.Read(s.key); ok {
		return p, true
	}
	return s.last.Clone(), true
}

// Load fetches the first page and replaces whatever was cached for the key.
func (s *Store) Load(ctx context.Context) (comment.Page, error) {
	prev, err := s.begin()
	if err != nil {
		return comment.Page{}, err
	}

	fetched, err := s.fetcher.GetComments(ctx, s.parent, s.limit, 0)
	if err != nil {
		s.abort(prev)
		slog.Debug("load failed", "parent", s.parent.String(), "error", err)
		return comment.Page{}, fmt.Errorf("loading comments: %w", err)
	}

	page := comment.Concat(comment.Page{}, fetched.Nodes, fetched.TotalCount)
	if err := s.commit(page); err != nil {
		return comment.Page{}, err
	}

	slog.Debug("loaded comments", "parent", s.parent.String(), "nodes", page.Len(), "total", page.TotalCount)
	return page, nil
}

// LoadMore fetches the next page at offset len(nodes) and appends it. The
// total comes from the response. When every comment is already loaded it
// returns the current page without a request; an empty response leaves the
// nodes unchanged.
func (s *Store) LoadMore(ctx context.Context) (comment.Page, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return comment.Page{}, ErrClosed
	}
	if s.state == Empty {
		s.mu.Unlock()
		return comment.Page{}, ErrNotLoaded
	}
	if s.state == Loading {
		s.mu.Unlock()
		return comment.Page{}, ErrBusy
	}
	base, _ := s.current()
	if !base.HasMore() {
		s.mu.Unlock()
		return base, nil
	}
	s.state = Loading
	s.mu.Unlock()

	fetched, err := s.fetcher.GetComments(ctx, s.parent, s.limit, base.Len())
	if err != nil {
		s.abort(Loaded)
		slog.Debug("load more failed", "parent", s.parent.String(), "offset", base.Len(), "error", err)
		return comment.Page{}, fmt.Errorf("loading more comments: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return comment.Page{}, ErrClosed
	}

	// Re-read: a submission may have landed while the request was in flight.
	latest, _ := s.current()
	page := comment.Concat(latest, fetched.Nodes, fetched.TotalCount)

	s.pages.Write(s.key, page)
	s.last = page
	s.state = Loaded

	slog.Debug("loaded more comments", "parent", s.parent.String(), "fetched", len(fetched.Nodes), "nodes", page.Len(), "total", page.TotalCount)
	return page.Clone(), nil
}

// AppendSubmitted merges a server-confirmed comment into the cached page.
// It never fetches.
func (s *Store) AppendSubmitted(c comment.Comment) (comment.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return comment.Page{}, ErrClosed
	}
	if s.state == Empty {
		return comment.Page{}, ErrNotLoaded
	}

	base, _ := s.current()
	page := comment.MergeAppend(base, c)
	s.pages.Write(s.key, page)
	s.last = page
	return page.Clone(), nil
}

// Close tears the view down. Fetches still in flight are discarded when they
// return. The cached page is evicted once no other view of the same key is
// open. Close is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	evicted := s.pages.Release(s.key)
	slog.Debug("closed thread view", "key", s.key.String(), "evicted", evicted, "cached_pages", s.pages.Len())
}

// begin moves the store into Loading and returns the state to restore on failure.
func (s *Store) begin() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.state, ErrClosed
	}
	if s.state == Loading {
		return s.state, ErrBusy
	}
	prev := s.state
	s.state = Loading
	return prev, nil
}

// abort restores prev after a failed fetch, unless the store was closed meanwhile.
func (s *Store) abort(prev State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.state = prev
	}
}

// commit publishes a freshly loaded first page.
func (s *Store) commit(page comment.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.pages.Write(s.key, page)
	s.last = page
	s.state = Loaded
	return nil
}
