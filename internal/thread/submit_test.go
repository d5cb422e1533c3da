package thread

import (
	"context"
	"errors"
	"testing"

	"github.com/evcraddock/collective-threads/internal/cache"
	"github.com/evcraddock/collective-threads/internal/comment"
)

var testAuthor = SubmitContext{Parent: testExpense, CollectiveID: 8, AuthorID: 3}

func TestSubmitOnEmptyThread(t *testing.T) {
	s, api, pages := testStore(t, 0, 10)
	ctx := context.Background()

	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	sub := NewSubmitter(api, pages)
	created, err := sub.Submit(ctx, "hello", testAuthor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected server-assigned id")
	}

	page := mustPage(t, s)
	if page.TotalCount != 1 {
		t.Errorf("total = %d, want 1", page.TotalCount)
	}
	if page.Len() != 1 || page.Nodes[0].HTML != "hello" {
		t.Errorf("nodes = %+v", page.Nodes)
	}
	if page.Nodes[0].FromCollective.ID != 3 {
		t.Errorf("author = %d, want 3", page.Nodes[0].FromCollective.ID)
	}
}

func TestSubmitEmptyContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, api, pages := testStore(t, 3, 10)
			if _, err := s.Load(context.Background()); err != nil {
				t.Fatalf("load: %v", err)
			}

			_, err := NewSubmitter(api, pages).Submit(context.Background(), tt.content, testAuthor)
			if !errors.Is(err, comment.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			var ve *comment.ValidationError
			if !errors.As(err, &ve) || ve.Field != "content" {
				t.Errorf("validation error = %+v", ve)
			}
			if api.posts != 0 {
				t.Errorf("posts = %d, want 0", api.posts)
			}

			page := mustPage(t, s)
			if page.Len() != 3 || page.TotalCount != 3 {
				t.Errorf("page changed: nodes=%d total=%d", page.Len(), page.TotalCount)
			}
		})
	}
}

func TestSubmitRequiresAuthorAndParent(t *testing.T) {
	tests := []struct {
		name      string
		ctx       SubmitContext
		wantField string
	}{
		{"no author", SubmitContext{Parent: testExpense}, "author"},
		{"no parent id", SubmitContext{Parent: comment.Parent{Kind: comment.KindExpense}, AuthorID: 3}, "parent"},
		{"bad kind", SubmitContext{Parent: comment.Parent{Kind: "update", ID: 1}, AuthorID: 3}, "parent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSubmitter(newFakeAPI(), cache.New()).Submit(context.Background(), "hi", tt.ctx)
			var ve *comment.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestSubmitFailureLeavesPage(t *testing.T) {
	s, api, pages := testStore(t, 3, 10)
	ctx := context.Background()

	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	cause := &comment.TransportError{Op: "createComment", Err: errors.New("connection refused")}
	api.failPost = cause

	_, err := NewSubmitter(api, pages).Submit(ctx, "hello", testAuthor)
	if !errors.Is(err, comment.ErrSubmission) {
		t.Fatalf("err = %v, want ErrSubmission", err)
	}
	if !errors.Is(err, comment.ErrTransport) {
		t.Errorf("submission error should wrap the transport cause: %v", err)
	}

	page := mustPage(t, s)
	if page.Len() != 3 {
		t.Errorf("nodes = %d, want 3", page.Len())
	}
	if page.TotalCount != 3 {
		t.Errorf("total = %d, want 3", page.TotalCount)
	}
}

func TestSubmitUnknownParentIsSubmissionError(t *testing.T) {
	sub := NewSubmitter(newFakeAPI(), cache.New())
	_, err := sub.Submit(context.Background(), "hello", SubmitContext{
		Parent:   comment.Parent{Kind: comment.KindConversation, ID: 99},
		AuthorID: 3,
	})
	if !errors.Is(err, comment.ErrSubmission) {
		t.Fatalf("err = %v, want ErrSubmission", err)
	}
	if !errors.Is(err, comment.ErrNotFound) {
		t.Errorf("err = %v, should wrap ErrNotFound", err)
	}
}

func TestSubmitWithoutCachedPage(t *testing.T) {
	api := newFakeAPI()
	api.seed(testExpense, 2)
	pages := cache.New()

	created, err := NewSubmitter(api, pages).Submit(context.Background(), "hello", testAuthor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.HTML != "hello" {
		t.Errorf("html = %q", created.HTML)
	}
	if pages.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", pages.Len())
	}

	// A view mounted afterwards sees the comment from the server.
	s := NewStore(api, pages, testExpense, 10)
	page, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if page.Len() != 3 || page.Nodes[2].ID != created.ID {
		t.Errorf("page = %+v", page)
	}
}

func TestSubmitUpdatesOnlyMatchingPageSize(t *testing.T) {
	api := newFakeAPI()
	api.seed(testExpense, 2)
	pages := cache.New()

	small := NewStore(api, pages, testExpense, 5)
	if _, err := small.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := NewSubmitter(api, pages, WithPageSize(5)).Submit(context.Background(), "hi", testAuthor); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := mustPage(t, small).Len(); got != 3 {
		t.Errorf("nodes = %d, want 3", got)
	}

	if _, ok := pages.Read(Key(testExpense, 10)); ok {
		t.Error("submit created an entry for a key nobody loaded")
	}
}

func TestSubmitTwiceAppendsTwice(t *testing.T) {
	s, api, pages := testStore(t, 1, 10)
	ctx := context.Background()
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	sub := NewSubmitter(api, pages)
	for i := 0; i < 2; i++ {
		if _, err := sub.Submit(ctx, "same text", testAuthor); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	page := mustPage(t, s)
	if page.Len() != 3 || page.TotalCount != 3 {
		t.Errorf("nodes=%d total=%d, want 3/3", page.Len(), page.TotalCount)
	}
	if page.Nodes[1].ID == page.Nodes[2].ID {
		t.Error("each confirmed submission should have its own server id")
	}
}

func TestSubmitVisibleToLoadMore(t *testing.T) {
	s, api, pages := testStore(t, 25, 10)
	ctx := context.Background()
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := NewSubmitter(api, pages).Submit(ctx, "hello", testAuthor); err != nil {
		t.Fatalf("submit: %v", err)
	}

	page := mustPage(t, s)
	if page.Len() != 11 || page.TotalCount != 26 {
		t.Fatalf("after submit: nodes=%d total=%d", page.Len(), page.TotalCount)
	}

	if _, err := s.LoadMore(ctx); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if got := api.offsets[len(api.offsets)-1]; got != 11 {
		t.Errorf("load more offset = %d, want 11", got)
	}
}

func TestSubmitSendsContentAsGiven(t *testing.T) {
	s, api, pages := testStore(t, 0, 10)
	ctx := context.Background()
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	content := "  <pre>\n  indented\n</pre>\n"
	created, err := NewSubmitter(api, pages).Submit(ctx, content, testAuthor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.HTML != content {
		t.Errorf("html = %q, want %q", created.HTML, content)
	}
	if got := mustPage(t, s).Nodes[0].HTML; got != content {
		t.Errorf("cached html = %q, want %q", got, content)
	}
}

func TestSubmitAfterLastViewClosed(t *testing.T) {
	s, api, pages := testStore(t, 2, 10)
	ctx := context.Background()
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.Close()

	if _, err := NewSubmitter(api, pages).Submit(ctx, "late", testAuthor); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if pages.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", pages.Len())
	}
}
