package thread

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
)

// fakeAPI is an in-memory Fetcher and Poster.
type fakeAPI struct {
	mu       sync.Mutex
	comments map[comment.Parent][]comment.Comment
	nextID   int64
	gets     int
	posts    int
	offsets  []int

	failGet  error
	failPost error

	// reportTotal, when non-zero, replaces the real total in responses.
	reportTotal int

	// gate, when set, holds GetComments until it is closed.
	gate    chan struct{}
	started chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{comments: make(map[comment.Parent][]comment.Comment)}
}

// seed creates n comments on parent.
func (f *fakeAPI) seed(parent comment.Parent, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.comments[parent]; !ok {
		f.comments[parent] = []comment.Comment{}
	}
	for i := 0; i < n; i++ {
		f.nextID++
		f.comments[parent] = append(f.comments[parent], comment.Comment{
			ID:        f.nextID,
			HTML:      fmt.Sprintf("comment %d", f.nextID),
			CreatedAt: time.Date(2019, 6, 1, 0, 0, int(f.nextID), 0, time.UTC),
		})
	}
}

func (f *fakeAPI) GetComments(ctx context.Context, parent comment.Parent, limit, offset int) (*comment.Page, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, &comment.TransportError{Op: "getComments", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	f.offsets = append(f.offsets, offset)
	if f.failGet != nil {
		return nil, f.failGet
	}

	all, ok := f.comments[parent]
	if !ok {
		return nil, &comment.NotFoundError{Parent: parent}
	}

	total := len(all)
	if f.reportTotal != 0 {
		total = f.reportTotal
	}

	page := &comment.Page{TotalCount: total, Nodes: []comment.Comment{}}
	if offset >= len(all) {
		return page, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page.Nodes = append(page.Nodes, all[offset:end]...)
	return page, nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, in client.CreateCommentInput) (*comment.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.posts++
	if f.failPost != nil {
		return nil, f.failPost
	}
	if _, ok := f.comments[in.Parent]; !ok {
		return nil, &comment.NotFoundError{Parent: in.Parent}
	}

	f.nextID++
	c := comment.Comment{
		ID:             f.nextID,
		HTML:           in.HTML,
		CreatedAt:      time.Date(2019, 6, 2, 0, 0, 0, 0, time.UTC),
		FromCollective: comment.CollectiveRef{ID: in.FromCollectiveID},
	}
	f.comments[in.Parent] = append(f.comments[in.Parent], c)
	return &c, nil
}

func (f *fakeAPI) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}
