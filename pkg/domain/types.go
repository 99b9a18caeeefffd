package domain

import "time"

// User is the account record as exposed to clients. The password hash never
// leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// BookAuthor is the denormalized author snapshot embedded in every Book.
type BookAuthor struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

// Book is a single book-recommendation post.
type Book struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Caption   string     `json:"caption"`
	Rating    int        `json:"rating"`
	Image     string     `json:"image"`
	User      BookAuthor `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Author returns the denormalized snapshot for a user.
func (u User) Author() BookAuthor {
	return BookAuthor{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage}
}

// BookPage is one page of the paginated feed.
type BookPage struct {
	Books       []Book `json:"books"`
	CurrentPage int    `json:"currentPage"`
	TotalBooks  int64  `json:"totalBooks"`
	TotalPages  int    `json:"totalPages"`
}
