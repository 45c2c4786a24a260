package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"freshcart/internal/domain"
	"freshcart/internal/repository"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserRouter(svc service.UserService) http.Handler {
	handler := NewUserHandler(svc, zap.NewNop())
	return newTestRouter(func(r chi.Router) {
		handler.RegisterRoutes(r, nil)
	})
}

func storedUser(name, email string) *domain.User {
	return &domain.User{
		ID:           1,
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Feature: bulk-ordering, Property 5: Malformed signup payloads never reach the service
func TestProperty_InvalidSignupDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("signup with invalid data returns validation errors", prop.ForAll(
		func(invalidCase int) bool {
			called := false
			router := newUserRouter(&fakeUserService{
				signup: func(ctx context.Context, name, email, password string) (*domain.User, error) {
					called = true
					return storedUser(name, email), nil
				},
			})

			var body SignupRequest
			switch invalidCase {
			case 0:
				body = SignupRequest{Name: "Ada", Email: "", Password: "pw"}
			case 1:
				body = SignupRequest{Name: "Ada", Email: "not-an-email", Password: "pw"}
			case 2:
				body = SignupRequest{Name: "", Email: "ada@example.com", Password: "pw"}
			case 3:
				body = SignupRequest{Name: "Ada", Email: "ada@example.com"}
			}

			w := doJSON(t, router, http.MethodPost, "/api/auth/signup", body)
			return w.Code == http.StatusBadRequest && !called
		},
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSignup_CreatesUserWithoutExposingHash(t *testing.T) {
	router := newUserRouter(&fakeUserService{
		signup: func(ctx context.Context, name, email, password string) (*domain.User, error) {
			return storedUser(name, email), nil
		},
	})

	w := doJSON(t, router, http.MethodPost, "/api/auth/signup", SignupRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "$2a$")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "User created successfully", body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, float64(1), user["id"])
}

func TestAuthHandler_ErrorMapping(t *testing.T) {
	svc := &fakeUserService{
		signup: func(ctx context.Context, name, email, password string) (*domain.User, error) {
			return nil, repository.ErrUserAlreadyExists
		},
		login: func(ctx context.Context, email, password string) (*domain.User, error) {
			return nil, service.ErrInvalidCredentials
		},
		addUser: func(ctx context.Context, username, email, password string) (*domain.User, error) {
			return nil, &service.ValidationError{Message: "All fields are required"}
		},
		listUsers: func(ctx context.Context) ([]*domain.User, error) {
			return nil, service.ErrNoUsers
		},
		adminLogin: func(username, password string) error {
			return service.ErrInvalidAdminCredentials
		},
	}
	router := newUserRouter(svc)

	tests := []struct {
		name        string
		method      string
		path        string
		body        interface{}
		wantStatus  int
		wantMessage string
	}{
		{
			name:   "duplicate signup",
			method: http.MethodPost, path: "/api/auth/signup",
			body:       SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "pw"},
			wantStatus: http.StatusBadRequest, wantMessage: "User already exists",
		},
		{
			name:   "bad login",
			method: http.MethodPost, path: "/api/auth/login",
			body:       LoginRequest{Email: "ada@example.com", Password: "nope"},
			wantStatus: http.StatusBadRequest, wantMessage: "Invalid credentials",
		},
		{
			name:   "add user missing fields",
			method: http.MethodPost, path: "/api/auth/add-user",
			body:       AddUserRequest{Username: "ada"},
			wantStatus: http.StatusBadRequest, wantMessage: "All fields are required",
		},
		{
			name:   "empty directory",
			method: http.MethodGet, path: "/api/auth/users",
			wantStatus: http.StatusNotFound, wantMessage: "No users found",
		},
		{
			name:   "bad admin login",
			method: http.MethodPost, path: "/api/auth/admin/login",
			body:       AdminLoginRequest{Username: "admin", Password: "wrong"},
			wantStatus: http.StatusBadRequest, wantMessage: "Invalid admin credentials",
		},
		{
			name:   "malformed body",
			method: http.MethodPost, path: "/api/auth/login",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest, wantMessage: "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, errorMessage(t, w))
		})
	}
}

func TestLogin_Success(t *testing.T) {
	router := newUserRouter(&fakeUserService{
		login: func(ctx context.Context, email, password string) (*domain.User, error) {
			return storedUser("Ada", email), nil
		},
	})

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Login successful"`)
}

func TestListUsers_ReturnsArray(t *testing.T) {
	router := newUserRouter(&fakeUserService{
		listUsers: func(ctx context.Context) ([]*domain.User, error) {
			return []*domain.User{storedUser("Ada", "ada@example.com")}, nil
		},
	})

	w := doJSON(t, router, http.MethodGet, "/api/auth/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0]["name"])
	assert.NotContains(t, users[0], "password")
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	router := newUserRouter(&fakeUserService{
		listUsers: func(ctx context.Context) ([]*domain.User, error) {
			return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
		},
	})

	w := doJSON(t, router, http.MethodGet, "/api/auth/users", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", errorMessage(t, w))
	assert.False(t, strings.Contains(w.Body.String(), "10.0.0.5"))
}

func TestAdminLogin_Success(t *testing.T) {
	router := newUserRouter(&fakeUserService{
		adminLogin: func(username, password string) error { return nil },
	})

	w := doJSON(t, router, http.MethodPost, "/api/auth/admin/login", AdminLoginRequest{Username: "admin", Password: "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Admin login successful"}`, w.Body.String())
}
