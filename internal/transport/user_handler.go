package transport

import (
	"net/http"

	"freshcart/internal/domain"
	"freshcart/internal/middleware"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AddUserRequest is the admin payload for creating a user. Missing fields
// are reported by the service.
type AddUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
}

// AdminLoginRequest represents the admin sign-in payload
type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse wraps a user with a status message
type UserResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

// UserHandler handles the account endpoints
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes mounts the account routes. limiter guards the credential
// checks and may be nil.
func (h *UserHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	if limiter == nil {
		limiter = passThrough
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.With(limiter).Post("/login", h.Login)
		r.With(limiter).Post("/admin/login", h.AdminLogin)
		r.Post("/add-user", h.AddUser)
		r.Get("/users", h.ListUsers)
	})
}

// Signup handles self-service account creation
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	user, err := h.userService.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.logger, "Signup", err)
		return
	}

	h.logger.Info("User signed up", zap.Int64("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, UserResponse{Message: "User created successfully", User: user})
}

// Login handles user authentication. No session or token is issued.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.logger, "Login", err)
		return
	}

	h.logger.Info("User logged in", zap.Int64("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusOK, UserResponse{Message: "Login successful", User: user})
}

// AddUser handles account creation from the admin panel
func (h *UserHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	user, err := h.userService.AddUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.logger, "Add user", err)
		return
	}

	h.logger.Info("User added by admin", zap.Int64("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, UserResponse{Message: "User created successfully", User: user})
}

// ListUsers returns the user directory
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "List users", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, users)
}

// AdminLogin checks the admin credential pair
func (h *UserHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	if err := h.userService.AdminLogin(req.Username, req.Password); err != nil {
		respondWithServiceError(w, h.logger, "Admin login", err)
		return
	}

	h.logger.Info("Admin logged in")
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Admin login successful"})
}
