package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"bookworm/internal/util"
	"bookworm/pkg/auth"
	"bookworm/pkg/domain"
	"bookworm/pkg/storage"
	"bookworm/pkg/store"
)

const (
	// DefaultPageLimit matches the original API default.
	DefaultPageLimit = 5
	MaxPageLimit     = 20
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	SessionTTL  time.Duration

	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	// Injectable for tests.
	Store    store.Store
	Sessions store.SessionStore
	Objects  storage.ObjectStore
}

// App is the core application service wiring together storage, sessions,
// and domain logic.
type App struct {
	store    store.Store
	sessions store.SessionStore
	objects  storage.ObjectStore
}

// New constructs the application. Dependencies left nil in cfg are built
// from the connection settings.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var revoker store.TokenRevoker
		if strings.TrimSpace(cfg.RedisAddr) != "" {
			revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		} else {
			revoker = store.NewMemoryTokenRevoker()
		}
		jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, revoker, store.JWTSessionOptions{
			TTL: cfg.SessionTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		sessionStore = jwtStore
	}

	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(
			cfg.MinioEndpoint,
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			cfg.MinioBucket,
			cfg.MinioUseSSL,
			cfg.MinioPublicURL,
		)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	return &App{
		store:    dataStore,
		sessions: sessionStore,
		objects:  objects,
	}, nil
}

// Register creates a new account and issues a session token.
func (a *App) Register(username, email, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return domain.User{}, "", ErrAllFieldsRequired
	}
	if err := auth.ValidateUsername(username); err != nil {
		return domain.User{}, "", err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	emailTaken, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if emailTaken {
		return domain.User{}, "", ErrEmailExists
	}
	nameTaken, err := a.store.HasUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check username: %w", err)
	}
	if nameTaken {
		return domain.User{}, "", ErrUsernameExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		ProfileImage: defaultAvatarURL(username),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", ErrAllFieldsRequired
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Logout invalidates the session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// CreateBook stores a new recommendation. imageData is a base64 data URI;
// the decoded image is uploaded to object storage and its public URL is
// recorded on the post.
func (a *App) CreateBook(ctx context.Context, owner domain.User, title, caption string, rating int, imageData string) (domain.Book, error) {
	title = strings.TrimSpace(title)
	caption = strings.TrimSpace(caption)
	if title == "" || caption == "" {
		return domain.Book{}, ErrAllFieldsRequired
	}
	if rating < 1 || rating > 5 {
		return domain.Book{}, ErrInvalidRating
	}
	if strings.TrimSpace(imageData) == "" {
		return domain.Book{}, ErrImageRequired
	}
	raw, contentType, err := decodeImageData(imageData)
	if err != nil {
		return domain.Book{}, fmt.Errorf("decode image: %w", err)
	}

	id := util.NewID()
	key := coverKey(id, contentType)
	imageURL, err := a.objects.Put(ctx, key, bytes.NewReader(raw), int64(len(raw)), contentType)
	if err != nil {
		return domain.Book{}, fmt.Errorf("store image: %w", err)
	}

	now := time.Now().UTC()
	book := domain.Book{
		ID:        id,
		Title:     title,
		Caption:   caption,
		Rating:    rating,
		Image:     imageURL,
		User:      owner.Author(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveBook(book); err != nil {
		_ = a.objects.Delete(ctx, key)
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// ListBooks returns one page of the global feed, newest first.
func (a *App) ListBooks(page, limit int) (domain.BookPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	books, total, err := a.store.ListBooks(page, limit)
	if err != nil {
		return domain.BookPage{}, fmt.Errorf("list books: %w", err)
	}
	return domain.BookPage{
		Books:       books,
		CurrentPage: page,
		TotalBooks:  total,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// ListBooksByOwner returns all posts by the given user, newest first.
func (a *App) ListBooksByOwner(owner domain.User) ([]domain.Book, error) {
	books, err := a.store.ListBooksByOwner(owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list user books: %w", err)
	}
	return books, nil
}

// DeleteBook removes a post owned by the user. The stored cover image is
// deleted best-effort: a storage failure does not fail the operation.
func (a *App) DeleteBook(ctx context.Context, user domain.User, id string) error {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	if book.User.ID != user.ID {
		return ErrNotOwner
	}
	if err := a.store.DeleteBook(id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if key, ok := coverKeyFromURL(book.Image); ok {
		if err := a.objects.Delete(ctx, key); err != nil {
			util.LoggerFromContext(ctx).Warn("delete cover image failed", "book_id", id, "err", err)
		}
	}
	return nil
}

// decodeImageData accepts "data:<type>;base64,<payload>" or a bare base64
// string (treated as JPEG).
func decodeImageData(imageData string) ([]byte, string, error) {
	contentType := "image/jpeg"
	payload := imageData
	if strings.HasPrefix(imageData, "data:") {
		rest := strings.TrimPrefix(imageData, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return nil, "", fmt.Errorf("malformed data URI")
		}
		if ct := strings.TrimSpace(rest[:semi]); ct != "" {
			contentType = ct
		}
		payload = rest[semi+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("empty image payload")
	}
	return raw, contentType, nil
}

func coverKey(bookID, contentType string) string {
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	}
	return "covers/" + bookID + ext
}

// coverKeyFromURL recovers the storage key from a stored public image URL.
func coverKeyFromURL(imageURL string) (string, bool) {
	idx := strings.Index(imageURL, "/covers/")
	if idx < 0 {
		return "", false
	}
	return imageURL[idx+1:], true
}

func defaultAvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + username
}
