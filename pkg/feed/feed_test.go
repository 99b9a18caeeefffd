package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookworm/pkg/domain"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

type fakeAPI struct {
	mu        sync.Mutex
	pages     map[int]domain.BookPage
	listErr   error
	deleteErr error
	listCalls int
	deleted   []string

	// when set, the next ListBooks call for the page blocks until the
	// channel is closed; later calls for the page run through
	gates map[int]chan struct{}
}

func (f *fakeAPI) ListBooks(ctx context.Context, _ string, page, _ int) (domain.BookPage, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.gates[page]
	delete(f.gates, page)
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.BookPage{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return domain.BookPage{}, f.listErr
	}
	return f.pages[page], nil
}

func (f *fakeAPI) DeleteBook(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func book(id string) domain.Book {
	return domain.Book{ID: id, Title: "title-" + id}
}

func ids(posts []domain.Book) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func equalIDs(got []domain.Book, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, p := range got {
		if p.ID != want[i] {
			return false
		}
	}
	return true
}

func newSync(api *fakeAPI) *Synchronizer {
	return New(api, staticToken("tok"), Options{MinRefreshVisible: 0})
}

func waitForCalls(t *testing.T, api *fakeAPI, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for api.calls() < n {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d requests", n)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestAppendDeduplicatesAndPreservesOrder(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A"), book("B")}, TotalPages: 2},
		2: {Books: []domain.Book{book("B"), book("C")}, TotalPages: 2},
	}}
	s := newSync(api)

	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load page 1: %v", err)
	}
	if err := s.Load(context.Background(), 2, false); err != nil {
		t.Fatalf("load page 2: %v", err)
	}

	st := s.State()
	if !equalIDs(st.Posts, "A", "B", "C") {
		t.Fatalf("posts = %v, want [A B C]", ids(st.Posts))
	}
}

func TestRefreshReplaces(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A"), book("B")}, TotalPages: 1},
	}}
	s := newSync(api)
	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.mu.Lock()
	api.pages[1] = domain.BookPage{Books: []domain.Book{book("C"), book("D")}, TotalPages: 1}
	api.mu.Unlock()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	st := s.State()
	if !equalIDs(st.Posts, "C", "D") {
		t.Fatalf("posts = %v, want [C D]", ids(st.Posts))
	}
	if st.Refreshing {
		t.Fatal("refreshing flag should clear after refresh")
	}
}

func TestHasMoreTracksTotalPages(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A")}, TotalPages: 3},
		3: {Books: []domain.Book{book("E")}, TotalPages: 3},
	}}
	s := newSync(api)

	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := s.State(); !st.HasMore || st.Page != 1 {
		t.Fatalf("after page 1: hasMore=%v page=%d", st.HasMore, st.Page)
	}

	if err := s.Load(context.Background(), 3, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := s.State(); st.HasMore || st.Page != 3 {
		t.Fatalf("after page 3: hasMore=%v page=%d", st.HasMore, st.Page)
	}
}

func TestLoadMoreGuards(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A")}, TotalPages: 1},
	}}
	s := newSync(api)
	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := api.calls()

	// hasMore is false
	if err := s.LoadMore(context.Background()); err != nil {
		t.Fatalf("loadMore: %v", err)
	}
	if api.calls() != before {
		t.Fatal("loadMore should not hit the API when hasMore is false")
	}

	// loading in flight
	s.mu.Lock()
	s.hasMore = true
	s.loading = true
	s.mu.Unlock()
	if err := s.LoadMore(context.Background()); err != nil {
		t.Fatalf("loadMore: %v", err)
	}
	if api.calls() != before {
		t.Fatal("loadMore should not hit the API while loading")
	}

	// refreshing in flight
	s.mu.Lock()
	s.loading = false
	s.refreshing = true
	s.mu.Unlock()
	if err := s.LoadMore(context.Background()); err != nil {
		t.Fatalf("loadMore: %v", err)
	}
	if api.calls() != before {
		t.Fatal("loadMore should not hit the API while refreshing")
	}
}

func TestLoadMoreFetchesNextPage(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A"), book("B")}, TotalPages: 2},
		2: {Books: []domain.Book{book("C")}, TotalPages: 2},
	}}
	s := newSync(api)
	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.LoadMore(context.Background()); err != nil {
		t.Fatalf("loadMore: %v", err)
	}
	st := s.State()
	if !equalIDs(st.Posts, "A", "B", "C") || st.Page != 2 || st.HasMore {
		t.Fatalf("state = posts %v page %d hasMore %v", ids(st.Posts), st.Page, st.HasMore)
	}
}

func TestLoadWithoutTokenIsNoop(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{}}
	s := New(api, staticToken(""), Options{MinRefreshVisible: 0})
	s.mu.Lock()
	s.loading = true
	s.refreshing = true
	s.mu.Unlock()

	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	st := s.State()
	if len(st.Posts) != 0 || st.Loading || st.Refreshing {
		t.Fatalf("unexpected state: %+v", st)
	}
	if api.calls() != 0 {
		t.Fatal("no request should be issued without a token")
	}
}

func TestLoadFailureLeavesPosts(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A")}, TotalPages: 2},
	}}
	s := newSync(api)
	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.mu.Lock()
	api.listErr = errors.New("boom")
	api.mu.Unlock()

	if err := s.Load(context.Background(), 2, false); err == nil {
		t.Fatal("expected error from failing load")
	}
	st := s.State()
	if !equalIDs(st.Posts, "A") || st.Page != 1 {
		t.Fatalf("failed load must not mutate state: %+v", st)
	}
	if st.Loading || st.Refreshing {
		t.Fatal("activity flags must clear after a failed load")
	}
}

func TestDeleteRemovesAfterConfirmation(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A"), book("B")}, TotalPages: 1},
	}}
	s := newSync(api)
	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.Delete(context.Background(), "A"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st := s.State()
	if !equalIDs(st.Posts, "B") {
		t.Fatalf("posts = %v, want [B]", ids(st.Posts))
	}
	if st.PendingDeleteID != "" {
		t.Fatalf("pendingDeleteID = %q, want empty", st.PendingDeleteID)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "A" {
		t.Fatalf("deleted = %v", api.deleted)
	}
}

func TestDeleteFailureKeepsPosts(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A"), book("B")}, TotalPages: 1},
	}}
	s := newSync(api)
	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.mu.Lock()
	api.deleteErr = errors.New("You are not the owner")
	api.mu.Unlock()

	err := s.Delete(context.Background(), "A")
	if err == nil || err.Error() != "You are not the owner" {
		t.Fatalf("err = %v", err)
	}
	st := s.State()
	if !equalIDs(st.Posts, "A", "B") {
		t.Fatalf("posts = %v, want unchanged [A B]", ids(st.Posts))
	}
	if st.PendingDeleteID != "" {
		t.Fatal("pendingDeleteID must clear after a failed delete")
	}
}

func TestDeleteWithoutTokenIsNoop(t *testing.T) {
	api := &fakeAPI{}
	s := New(api, staticToken(""), Options{MinRefreshVisible: 0})
	if err := s.Delete(context.Background(), "A"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(api.deleted) != 0 {
		t.Fatal("no request should be issued without a token")
	}
}

func TestStaleLoadCompletionIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		pages: map[int]domain.BookPage{
			1: {Books: []domain.Book{book("FRESH")}, TotalPages: 1},
			2: {Books: []domain.Book{book("STALE")}, TotalPages: 5},
		},
		gates: map[int]chan struct{}{2: gate},
	}
	s := newSync(api)

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background(), 2, false)
	}()

	// wait until the page-2 request is in flight
	waitForCalls(t, api, 1)

	// a refresh supersedes the in-flight paginate
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("stale load: %v", err)
	}

	st := s.State()
	if !equalIDs(st.Posts, "FRESH") {
		t.Fatalf("posts = %v, stale completion must be discarded", ids(st.Posts))
	}
	if st.Page != 1 || st.HasMore {
		t.Fatalf("stale completion leaked page state: page=%d hasMore=%v", st.Page, st.HasMore)
	}
}

func TestStaleLoadStillClearsLoadingFlag(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		pages: map[int]domain.BookPage{
			1: {Books: []domain.Book{book("A")}, TotalPages: 2},
			2: {Books: []domain.Book{book("B")}, TotalPages: 2},
		},
		gates: map[int]chan struct{}{1: gate},
	}
	s := newSync(api)

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background(), 1, false)
	}()
	waitForCalls(t, api, 1)

	// the refresh supersedes the gated page-1 load
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("stale load: %v", err)
	}

	st := s.State()
	if st.Loading || st.Refreshing {
		t.Fatalf("activity flags must clear after a stale discard: %+v", st)
	}
	if !equalIDs(st.Posts, "A") {
		t.Fatalf("posts = %v, want refresh result [A]", ids(st.Posts))
	}

	// with loading cleared, pagination keeps working
	before := api.calls()
	if err := s.LoadMore(context.Background()); err != nil {
		t.Fatalf("loadMore: %v", err)
	}
	if api.calls() != before+1 {
		t.Fatal("loadMore should issue a request once the stale load settled")
	}
	if got := s.State(); !equalIDs(got.Posts, "A", "B") {
		t.Fatalf("posts = %v, want [A B]", ids(got.Posts))
	}
}

func TestStaleRefreshStillClearsRefreshingFlag(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		pages: map[int]domain.BookPage{
			1: {Books: []domain.Book{book("A")}, TotalPages: 3},
			2: {Books: []domain.Book{book("B")}, TotalPages: 3},
		},
	}
	s := newSync(api)
	if err := s.Load(context.Background(), 1, false); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.mu.Lock()
	api.gates = map[int]chan struct{}{1: gate}
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.Refresh(context.Background())
	}()
	waitForCalls(t, api, 2)

	// a paginate supersedes the gated refresh
	if err := s.Load(context.Background(), 2, false); err != nil {
		t.Fatalf("load page 2: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("stale refresh: %v", err)
	}

	st := s.State()
	if st.Refreshing || st.Loading {
		t.Fatalf("activity flags must clear after a stale discard: %+v", st)
	}
	if !equalIDs(st.Posts, "A", "B") || st.Page != 2 {
		t.Fatalf("stale refresh leaked state: posts=%v page=%d", ids(st.Posts), st.Page)
	}
}

func TestRefreshHoldsMinimumVisibleDuration(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A")}, TotalPages: 1},
	}}
	s := New(api, staticToken("tok"), Options{MinRefreshVisible: 50 * time.Millisecond})

	start := time.Now()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("refresh returned after %v, want at least 50ms", elapsed)
	}
	if s.State().Refreshing {
		t.Fatal("refreshing flag should clear after the hold")
	}
}

func TestNoDuplicateIdentitiesAcrossManyLoads(t *testing.T) {
	api := &fakeAPI{pages: map[int]domain.BookPage{
		1: {Books: []domain.Book{book("A"), book("B")}, TotalPages: 3},
		2: {Books: []domain.Book{book("B"), book("C")}, TotalPages: 3},
		3: {Books: []domain.Book{book("C"), book("A")}, TotalPages: 3},
	}}
	s := newSync(api)
	for page := 1; page <= 3; page++ {
		if err := s.Load(context.Background(), page, false); err != nil {
			t.Fatalf("load page %d: %v", page, err)
		}
	}

	st := s.State()
	seen := map[string]bool{}
	for _, p := range st.Posts {
		if seen[p.ID] {
			t.Fatalf("duplicate identity %q in %v", p.ID, ids(st.Posts))
		}
		seen[p.ID] = true
	}
	if !equalIDs(st.Posts, "A", "B", "C") {
		t.Fatalf("posts = %v, want [A B C]", ids(st.Posts))
	}
}
