package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"freshcart/internal/domain"
	"freshcart/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

// AdminCredentials is the single hard-coded admin account.
type AdminCredentials struct {
	Username string
	Password string
}

// UserService defines the interface for user business logic
type UserService interface {
	Signup(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	AddUser(ctx context.Context, username, email, password string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	AdminLogin(username, password string) error
}

type userService struct {
	userRepo   repository.UserRepository
	transactor repository.Transactor
	admin      AdminCredentials
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	transactor repository.Transactor,
	admin AdminCredentials,
) UserService {
	return &userService{
		userRepo:   userRepo,
		transactor: transactor,
		admin:      admin,
	}
}

// Signup creates a new user account with a hashed password
func (s *userService) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.createUser(ctx, name, email, password)
}

// AddUser is the admin variant of Signup. Every field is mandatory.
func (s *userService) AddUser(ctx context.Context, username, email, password string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, newValidationError("All fields are required")
	}
	return s.createUser(ctx, username, email, password)
}

func (s *userService) createUser(ctx context.Context, name, email, password string) (*domain.User, error) {
	if len(password) > MaxPasswordBytes {
		return nil, newValidationError("Password must be at most %d bytes", MaxPasswordBytes)
	}

	// Hash outside the transaction; bcrypt is slow and needs no connection.
	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, newValidationError("Password must be at most %d bytes", MaxPasswordBytes)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
	}

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		existingUser, err := s.userRepo.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			return repository.ErrUserAlreadyExists
		}

		// A concurrent signup that slips past the check is caught by the
		// unique index and reported as ErrUserAlreadyExists too.
		return s.userRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Login authenticates a user. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ListUsers returns every user. An empty directory is reported as ErrNoUsers.
func (s *userService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNoUsers
	}
	return users, nil
}

// AdminLogin checks the configured admin credentials. No session is created.
func (s *userService) AdminLogin(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	if !userOK || !passOK || s.admin.Username == "" {
		return ErrInvalidAdminCredentials
	}
	return nil
}

// hashPassword hashes a password using bcrypt with cost factor 10
func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
