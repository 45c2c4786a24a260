package transport

import (
	"net/http"

	"freshcart/internal/domain"
	"freshcart/internal/middleware"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the full product payload used for create and update
type ProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	ImageURL    string           `json:"imageUrl"`
	Category    string           `json:"category"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
	}
}

// ProductListResponse wraps the catalog listing
type ProductListResponse struct {
	Products []*domain.Product `json:"products"`
}

// ProductResponse wraps a product with a status message
type ProductResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product"`
}

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalogService service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes mounts the catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.ListProducts(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "List products", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{Products: products})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, "Get product", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, "Create product", err)
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, ProductResponse{Message: "Product added successfully", Product: product})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, "Update product", err)
		return
	}

	h.logger.Info("Product updated", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Message: "Product updated successfully", Product: product})
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, "Delete product", err)
		return
	}

	h.logger.Info("Product deleted", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Product deleted successfully"})
}
