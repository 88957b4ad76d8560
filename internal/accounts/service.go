package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/i474232898/weather-favorites/internal/store"
)

// ErrInvalidCredentials is returned when a password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Users is the subset of the user store the account flows need.
type Users interface {
	CreateUser(ctx context.Context, username, password string) (store.User, error)
	CheckPassword(ctx context.Context, username, password string) (bool, error)
	GetIDByUsername(ctx context.Context, username string) (uint, error)
	UpdatePassword(ctx context.Context, username, newPassword string) error
}

// Service implements registration, login and password changes on top of Users.
type Service struct {
	users Users
}

func NewService(users Users) *Service {
	return &Service{users: users}
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, username, password string) (store.User, error) {
	return s.users.CreateUser(ctx, username, password)
}

// Login verifies the credentials and returns the user id.
// An unknown username yields store.ErrNotFound, a wrong password ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (uint, error) {
	if err := s.verify(ctx, username, password); err != nil {
		return 0, err
	}

	id, err := s.users.GetIDByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	log.Printf("INFO: user %q logged in", username)
	return id, nil
}

// VerifyPassword checks password against the stored credential of username.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) error {
	return s.verify(ctx, username, password)
}

// UserID returns the id of username.
func (s *Service) UserID(ctx context.Context, username string) (uint, error) {
	return s.users.GetIDByUsername(ctx, username)
}

// ChangePassword replaces the password of username once oldPassword is verified.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", store.ErrInvalid)
	}
	if err := s.verify(ctx, username, oldPassword); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, username, newPassword); err != nil {
		return err
	}
	log.Printf("INFO: password changed for user %q", username)
	return nil
}

func (s *Service) verify(ctx context.Context, username, password string) error {
	ok, err := s.users.CheckPassword(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("ERROR: wrong password for user %q", username)
		return ErrInvalidCredentials
	}
	return nil
}
