package store

import (
	"fmt"
	"testing"
	"time"

	"bookworm/pkg/domain"
)

func seedBooks(t *testing.T, s *MemoryStore, n int) []domain.Book {
	t.Helper()
	owner := domain.User{ID: "owner-1", Username: "ana", ProfileImage: "http://img/ana"}
	if err := s.SaveUser(owner); err != nil {
		t.Fatalf("save user: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	books := make([]domain.Book, 0, n)
	for i := 0; i < n; i++ {
		b := domain.Book{
			ID:        fmt.Sprintf("book-%02d", i),
			Title:     fmt.Sprintf("Title %d", i),
			Caption:   "caption",
			Rating:    3,
			User:      owner.Author(),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveBook(b); err != nil {
			t.Fatalf("save book: %v", err)
		}
		books = append(books, b)
	}
	return books
}

func TestMemoryStoreListBooksPaginates(t *testing.T) {
	s := NewMemoryStore()
	seedBooks(t, s, 5)

	page1, total, err := s.ListBooks(1, 2)
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if total != 5 {
		t.Fatalf("unexpected total: %d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("unexpected page size: %d", len(page1))
	}
	// Newest first.
	if page1[0].ID != "book-04" || page1[1].ID != "book-03" {
		t.Fatalf("unexpected order: %s, %s", page1[0].ID, page1[1].ID)
	}

	page3, _, err := s.ListBooks(3, 2)
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(page3) != 1 || page3[0].ID != "book-00" {
		t.Fatalf("unexpected last page: %+v", page3)
	}

	empty, _, err := s.ListBooks(4, 2)
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page beyond end, got %d", len(empty))
	}
}

func TestMemoryStoreEmbedsAuthorSnapshot(t *testing.T) {
	s := NewMemoryStore()
	seedBooks(t, s, 1)

	book, ok, err := s.GetBook("book-00")
	if err != nil || !ok {
		t.Fatalf("get book: ok=%v err=%v", ok, err)
	}
	if book.User.Username != "ana" || book.User.ProfileImage != "http://img/ana" {
		t.Fatalf("unexpected author snapshot: %+v", book.User)
	}
}

func TestMemoryStoreListBooksByOwner(t *testing.T) {
	s := NewMemoryStore()
	seedBooks(t, s, 3)
	other := domain.User{ID: "owner-2", Username: "ben"}
	if err := s.SaveUser(other); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if err := s.SaveBook(domain.Book{ID: "book-x", User: other.Author(), CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save book: %v", err)
	}

	mine, err := s.ListBooksByOwner("owner-1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("unexpected owner book count: %d", len(mine))
	}
	for _, b := range mine {
		if b.User.ID != "owner-1" {
			t.Fatalf("foreign book in owner listing: %+v", b)
		}
	}
}

func TestMemoryStoreDeleteBook(t *testing.T) {
	s := NewMemoryStore()
	seedBooks(t, s, 2)
	if err := s.DeleteBook("book-00"); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if _, ok, _ := s.GetBook("book-00"); ok {
		t.Fatalf("expected book to be gone")
	}
	if _, total, _ := s.ListBooks(1, 10); total != 1 {
		t.Fatalf("unexpected total after delete: %d", total)
	}
}
