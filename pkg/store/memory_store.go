package store

import (
	"sort"
	"sync"

	"bookworm/pkg/domain"
)

// MemoryStore keeps all records in memory. Used by tests and local runs that
// do not need Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	books map[string]domain.Book
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		books: make(map[string]domain.Book),
	}
}

// SaveUser inserts or replaces a user record.
func (s *MemoryStore) SaveUser(user domain.User) error {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
	return nil
}

// HasUserEmail checks whether the email is taken.
func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// HasUsername checks whether the username is taken.
func (s *MemoryStore) HasUsername(username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// GetUserByEmail fetches a user by email.
func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// GetUserByID fetches a user by ID.
func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

// SaveBook inserts or replaces a book record.
func (s *MemoryStore) SaveBook(book domain.Book) error {
	s.mu.Lock()
	s.books[book.ID] = book
	s.mu.Unlock()
	return nil
}

// GetBook fetches a book by ID.
func (s *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	return s.withAuthor(b), true, nil
}

// DeleteBook removes a book record.
func (s *MemoryStore) DeleteBook(id string) error {
	s.mu.Lock()
	delete(s.books, id)
	s.mu.Unlock()
	return nil
}

// ListBooks returns the requested page ordered newest-first plus the total
// count across all pages.
func (s *MemoryStore) ListBooks(page, limit int) ([]domain.Book, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	all := s.sortedBooks("")
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []domain.Book{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// ListBooksByOwner returns all books by one user, newest first.
func (s *MemoryStore) ListBooksByOwner(ownerID string) ([]domain.Book, error) {
	return s.sortedBooks(ownerID), nil
}

func (s *MemoryStore) sortedBooks(ownerID string) []domain.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		if ownerID != "" && b.User.ID != ownerID {
			continue
		}
		out = append(out, s.withAuthor(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// withAuthor refreshes the denormalized author snapshot from the current
// user record, mirroring the SQL join of the Postgres store.
func (s *MemoryStore) withAuthor(b domain.Book) domain.Book {
	if u, ok := s.users[b.User.ID]; ok {
		b.User = u.Author()
	}
	return b
}
