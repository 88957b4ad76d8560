package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is the public view of an account. The password hash never leaves the store.
type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// UserStore persists accounts and verifies their credentials.
type UserStore struct {
	db   *gorm.DB
	cost int
}

// NewUserStore returns a UserStore hashing passwords with the given bcrypt cost.
// A cost outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
func NewUserStore(db *DB, cost int) *UserStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserStore{db: db.gorm, cost: cost}
}

// CreateUser registers a new account. Usernames are unique.
func (s *UserStore) CreateUser(ctx context.Context, username, password string) (User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	rec := userRecord{Username: username, Password: string(hash)}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("ERROR: user %q already exists", username)
			return User{}, fmt.Errorf("%w: user %q", ErrConflict, username)
		}
		return User{}, storageError("create user", err)
	}

	log.Printf("INFO: created user %q with id %d", username, rec.ID)
	return User{ID: rec.ID, Username: rec.Username}, nil
}

// CheckPassword reports whether password matches the stored credential of username.
func (s *UserStore) CheckPassword(ctx context.Context, username, password string) (bool, error) {
	rec, err := s.findByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// GetIDByUsername resolves a username to its id.
func (s *UserStore) GetIDByUsername(ctx context.Context, username string) (uint, error) {
	rec, err := s.findByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// UpdatePassword overwrites the stored credential. The caller must already have
// verified the old password.
func (s *UserStore) UpdatePassword(ctx context.Context, username, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalid)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res := s.db.WithContext(ctx).
		Model(&userRecord{}).
		Where("username = ?", username).
		Update("password", string(hash))
	if res.Error != nil {
		return storageError("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %q", ErrNotFound, username)
	}

	log.Printf("INFO: password updated for user %q", username)
	return nil
}

func (s *UserStore) findByUsername(ctx context.Context, username string) (userRecord, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return userRecord{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return userRecord{}, storageError("find user", err)
	}
	return rec, nil
}
