package thread

import (
	"context"
	"log/slog"
	"strings"

	"github.com/evcraddock/collective-threads/internal/cache"
	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
)

// Poster creates comments. *client.Client implements it.
type Poster interface {
	CreateComment(ctx context.Context, in client.CreateCommentInput) (*comment.Comment, error)
}

// SubmitContext says where a comment goes and who writes it. AuthorID is the
// collective of an already authenticated user.
type SubmitContext struct {
	Parent       comment.Parent
	CollectiveID int64
	AuthorID     int64
}

// Submitter posts comments and folds confirmed ones into the shared cache.
// It does not deduplicate: two Submit calls post two comments.
type Submitter struct {
	poster Poster
	pages  *cache.Cache
	limit  int
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithPageSize sets the page size part of the cache key to update.
// It must match the Store viewing the same parent.
func WithPageSize(n int) Option {
	return func(s *Submitter) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSubmitter creates a submitter writing into pages.
func NewSubmitter(p Poster, pages *cache.Cache, opts ...Option) *Submitter {
	s := &Submitter{poster: p, pages: pages, limit: comment.DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates content, creates the comment, and after the server
// confirms it appends the returned comment to the cached page for the parent.
// Content is sent as given; whitespace only matters for the emptiness check.
// Validation failures return a *comment.ValidationError; anything the server
// or network does wrong returns a *comment.SubmissionError. On any error the
// cache is untouched.
func (s *Submitter) Submit(ctx context.Context, content string, sc SubmitContext) (comment.Comment, error) {
	if err := validate(content, sc); err != nil {
		return comment.Comment{}, err
	}

	created, err := s.poster.CreateComment(ctx, client.CreateCommentInput{
		HTML:             content,
		Parent:           sc.Parent,
		CollectiveID:     sc.CollectiveID,
		FromCollectiveID: sc.AuthorID,
	})
	if err != nil {
		slog.Debug("submit failed", "parent", sc.Parent.String(), "error", err)
		return comment.Comment{}, &comment.SubmissionError{Err: err}
	}

	key := Key(sc.Parent, s.limit)
	page, ok := s.pages.Read(key)
	if !ok {
		slog.Debug("no cached page to update", "key", key.String())
		return *created, nil
	}
	s.pages.Write(key, comment.MergeAppend(page, *created))

	slog.Debug("comment submitted", "parent", sc.Parent.String(), "id", created.ID)
	return *created, nil
}

func validate(content string, sc SubmitContext) error {
	if strings.TrimSpace(content) == "" {
		return &comment.ValidationError{Field: "content", Reason: "comment cannot be empty"}
	}
	if sc.AuthorID == 0 {
		return &comment.ValidationError{Field: "author", Reason: "an authenticated author is required"}
	}
	if sc.Parent.ID <= 0 {
		return &comment.ValidationError{Field: "parent", Reason: "parent id must be positive"}
	}
	if _, err := comment.ParseParentKind(string(sc.Parent.Kind)); err != nil {
		return &comment.ValidationError{Field: "parent", Reason: err.Error()}
	}
	return nil
}
