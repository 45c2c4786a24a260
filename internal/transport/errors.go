package transport

import (
	"errors"
	"net/http"
	"strconv"

	"freshcart/internal/middleware"
	"freshcart/internal/repository"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errInvalidID = errors.New("invalid id")

// errorMappings translates known service and repository errors into client
// responses. Order matters only for errors wrapping one another.
var errorMappings = []struct {
	target  error
	status  int
	message string
}{
	{repository.ErrUserAlreadyExists, http.StatusBadRequest, "User already exists"},
	{service.ErrInvalidCredentials, http.StatusBadRequest, "Invalid credentials"},
	{service.ErrInvalidAdminCredentials, http.StatusBadRequest, "Invalid admin credentials"},
	{service.ErrNoUsers, http.StatusNotFound, "No users found"},
	{service.ErrNoProducts, http.StatusNotFound, "No products found"},
	{repository.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{repository.ErrProductNotFound, http.StatusNotFound, "Product not found"},
	{repository.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{repository.ErrOrderGroupNotFound, http.StatusNotFound, "Order group not found"},
}

// respondWithServiceError writes the response for an error returned by a
// service call. Unknown errors are logged and reported as a bare 500.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, action string, err error) {
	if ve, ok := service.AsValidationError(err); ok {
		logger.Debug(action+" rejected", zap.String("reason", ve.Message))
		middleware.RespondWithError(w, http.StatusBadRequest, ve.Message)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			logger.Debug(action+" failed", zap.Error(err))
			middleware.RespondWithError(w, m.status, m.message)
			return
		}
	}

	logger.Error(action+" failed", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, middleware.ServerErrorMessage)
}

// respondWithDecodeError reports a body that could not be decoded or failed
// tag validation.
func respondWithDecodeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Debug("Request validation failed", zap.Error(err))

	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	if errors.Is(err, errInvalidUserID) {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

type messageResponse struct {
	Message string `json:"message"`
}

func passThrough(next http.Handler) http.Handler {
	return next
}
