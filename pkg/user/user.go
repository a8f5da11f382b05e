// Package user manages accounts allowed to ask questions.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RoleUser is the role every registered account receives.
const RoleUser = "ROLE_USER"

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned when a username/password pair does not verify.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrBlankCredentials is returned when a username or password is empty.
	ErrBlankCredentials = errors.New("username and password must not be empty")
)

// User is a registered account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	RegisteredAt time.Time  `json:"registeredAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// Store persists users.
type Store interface {
	// CreateUser stores u. It fails with ErrUsernameTaken on a duplicate name.
	CreateUser(ctx context.Context, u *User) error

	// GetUserByUsername returns the user or ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// TouchLogin sets the last login time of the user with id.
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// New builds a user with a hashed password and the default role.
func New(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrBlankCredentials
	}

	hash, err := Hash(password)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         RoleUser,
		RegisteredAt: time.Now().UTC(),
	}, nil
}

// Hash returns the bcrypt hash of password.
func Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches hash.
func Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates and stores a new user.
func Register(ctx context.Context, store Store, username, password string) (*User, error) {
	u, err := New(username, password)
	if err != nil {
		return nil, err
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks username and password against store.
func Authenticate(ctx context.Context, store Store, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrBlankCredentials
	}

	u, err := store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// Login authenticates and records the login time.
func Login(ctx context.Context, store Store, username, password string) (*User, error) {
	u, err := Authenticate(ctx, store, username, password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := store.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	u.LastLoginAt = &now

	return u, nil
}
