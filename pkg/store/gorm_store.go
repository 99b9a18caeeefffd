package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookworm/pkg/domain"
)

const migrateLockID int64 = 52214907

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BookModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// SaveUser inserts or updates a user record.
func (s *GormStore) SaveUser(user domain.User) error {
	model := userToModel(user)
	return s.db.Save(&model).Error
}

// HasUserEmail checks whether the email is taken.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasUsername checks whether the username is taken.
func (s *GormStore) HasUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail fetches a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("email = ?", email).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return modelToUser(model), true, nil
}

// GetUserByID fetches a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return modelToUser(model), true, nil
}

// SaveBook inserts or updates a book record.
func (s *GormStore) SaveBook(book domain.Book) error {
	model := bookToModel(book)
	return s.db.Save(&model).Error
}

// GetBook fetches a book by ID with its author snapshot.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Book{}, false, nil
	}
	if err != nil {
		return domain.Book{}, false, err
	}
	books, err := s.attachAuthors([]BookModel{model})
	if err != nil {
		return domain.Book{}, false, err
	}
	return books[0], true, nil
}

// DeleteBook removes a book record.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Delete(&BookModel{}, "id = ?", id).Error
}

// ListBooks returns the requested page ordered newest-first plus the total
// count across all pages.
func (s *GormStore) ListBooks(page, limit int) ([]domain.Book, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	var total int64
	if err := s.db.Model(&BookModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []BookModel
	err := s.db.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	books, err := s.attachAuthors(models)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// ListBooksByOwner returns all books by one user, newest first.
func (s *GormStore) ListBooksByOwner(ownerID string) ([]domain.Book, error) {
	var models []BookModel
	err := s.db.
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return s.attachAuthors(models)
}

// attachAuthors resolves owner records and embeds the denormalized author
// snapshot on each book.
func (s *GormStore) attachAuthors(models []BookModel) ([]domain.Book, error) {
	books := make([]domain.Book, 0, len(models))
	if len(models) == 0 {
		return books, nil
	}
	ownerIDs := make([]string, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		if _, ok := seen[m.OwnerID]; ok {
			continue
		}
		seen[m.OwnerID] = struct{}{}
		ownerIDs = append(ownerIDs, m.OwnerID)
	}
	var owners []UserModel
	if err := s.db.Where("id IN ?", ownerIDs).Find(&owners).Error; err != nil {
		return nil, err
	}
	authors := make(map[string]domain.BookAuthor, len(owners))
	for _, o := range owners {
		authors[o.ID] = domain.BookAuthor{
			ID:           o.ID,
			Username:     o.Username,
			ProfileImage: o.ProfileImage,
		}
	}
	for _, m := range models {
		book := modelToBook(m)
		book.User = authors[m.OwnerID]
		books = append(books, book)
	}
	return books, nil
}

func userToModel(user domain.User) UserModel {
	return UserModel{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		ProfileImage: user.ProfileImage,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func modelToUser(model UserModel) domain.User {
	return domain.User{
		ID:           model.ID,
		Username:     model.Username,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		ProfileImage: model.ProfileImage,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func bookToModel(book domain.Book) BookModel {
	return BookModel{
		ID:        book.ID,
		OwnerID:   book.User.ID,
		Title:     book.Title,
		Caption:   book.Caption,
		Rating:    book.Rating,
		Image:     book.Image,
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
}

func modelToBook(model BookModel) domain.Book {
	return domain.Book{
		ID:        model.ID,
		Title:     model.Title,
		Caption:   model.Caption,
		Rating:    model.Rating,
		Image:     model.Image,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}
