package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"pim-service/internal/clients"
	"pim-service/internal/config"
	"pim-service/internal/importer"
	"pim-service/internal/models"
	"pim-service/internal/repository"
)

// ProductsHandler serves the catalog CRUD endpoints
type ProductsHandler struct {
	repo    *repository.CatalogRepository
	shopify *clients.ShopifyClient
	cfg     *config.Config
	logger  *logrus.Entry
}

func NewProductsHandler(repo *repository.CatalogRepository, shopify *clients.ShopifyClient, cfg *config.Config, logger *logrus.Logger) *ProductsHandler {
	return &ProductsHandler{
		repo:    repo,
		shopify: shopify,
		cfg:     cfg,
		logger:  logger.WithField("component", "products-handler"),
	}
}

// GetProducts lists products with filters and pagination
// GET /api/v1/products
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.DefaultPageSize)))
	if limit < 1 {
		limit = h.cfg.DefaultPageSize
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}

	query := repository.ProductListQuery{
		Page:            page,
		Limit:           limit,
		Search:          c.Query("search"),
		Status:          c.Query("status"),
		IncludeVariants: c.Query("includeVariants") == "true",
	}

	products, total, err := h.repo.GetProducts(c.Request.Context(), query)
	if err != nil {
		h.logger.WithError(err).Error("failed to list products")
		respondError(c, http.StatusInternalServerError, "LIST_FAILED", "failed to list products")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"pagination": models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// GetProduct returns one product, optionally with variants
// GET /api/v1/products/:id
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.repo.GetProductByID(c.Request.Context(), id, c.DefaultQuery("includeVariants", "true") == "true")
	if err != nil {
		h.logger.WithError(err).Error("failed to load product")
		respondError(c, http.StatusInternalServerError, "GET_FAILED", "failed to load product")
		return
	}
	if product == nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: product})
}

// CreateProduct creates a product directly, outside the import flow
// POST /api/v1/products
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := c.Request.Context()
	slug, err := h.repo.NextUniqueSlug(ctx, req.Name)
	if err != nil {
		h.logger.WithError(err).Error("failed to derive slug")
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "failed to create product")
		return
	}

	status := req.Status
	if status == "" {
		status = models.ProductStatusActive
	}
	product := &models.Product{
		Name:        req.Name,
		Slug:        slug,
		ParentSKU:   req.ParentSKU,
		Description: req.Description,
		Features:    stringsToJSONArray(req.Features),
		Details:     stringsToJSONArray(req.Details),
		Status:      status,
	}
	if err := h.repo.CreateProduct(ctx, product); err != nil {
		h.logger.WithError(err).Error("failed to create product")
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "failed to create product")
		return
	}
	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: product})
}

// UpdateProduct applies a partial update to a product
// PUT /api/v1/products/:id
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := c.Request.Context()
	product, err := h.repo.GetProductByID(ctx, id, false)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", "failed to load product")
		return
	}
	if product == nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.ParentSKU != nil {
		product.ParentSKU = req.ParentSKU
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Features != nil {
		product.Features = stringsToJSONArray(req.Features)
	}
	if req.Details != nil {
		product.Details = stringsToJSONArray(req.Details)
	}
	if req.Status != nil {
		product.Status = *req.Status
	}

	if err := h.repo.UpdateProduct(ctx, product); err != nil {
		h.logger.WithError(err).Error("failed to update product")
		respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", "failed to update product")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: product})
}

// DeleteProduct soft deletes a product
// DELETE /api/v1/products/:id
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteProduct(c.Request.Context(), id); err != nil {
		h.logger.WithError(err).Error("failed to delete product")
		respondError(c, http.StatusInternalServerError, "DELETE_FAILED", "failed to delete product")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// GetVariants lists a product's variants with their attributes
// GET /api/v1/products/:id/variants
func (h *ProductsHandler) GetVariants(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	variants, err := h.repo.GetVariantsByProduct(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("failed to list variants")
		respondError(c, http.StatusInternalServerError, "LIST_FAILED", "failed to list variants")
		return
	}

	type variantWithAttrs struct {
		models.ProductVariant
		Attributes []models.VariantAttribute `json:"attributes"`
	}
	out := make([]variantWithAttrs, 0, len(variants))
	for _, v := range variants {
		attrs, err := h.repo.GetVariantAttributes(ctx, v.ID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "LIST_FAILED", "failed to load variant attributes")
			return
		}
		out = append(out, variantWithAttrs{ProductVariant: v, Attributes: attrs})
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: out})
}

// CreateVariant adds a variant to a product
// POST /api/v1/products/:id/variants
func (h *ProductsHandler) CreateVariant(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := c.Request.Context()
	product, err := h.repo.GetProductByID(ctx, id, false)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "failed to load product")
		return
	}
	if product == nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}

	existing, err := h.repo.FindVariantBySKU(ctx, req.SKU)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "failed to check SKU")
		return
	}
	if existing != nil {
		respondError(c, http.StatusConflict, "SKU_EXISTS", "a variant with this SKU already exists")
		return
	}

	variant := &models.ProductVariant{
		ProductID:     product.ID,
		SKU:           req.SKU,
		PackageLength: req.PackageLength,
		PackageWidth:  req.PackageWidth,
		PackageHeight: req.PackageHeight,
		PackageWeight: req.PackageWeight,
		Status:        models.ProductStatusActive,
	}
	if req.StockLevel != nil {
		variant.StockLevel = *req.StockLevel
	}
	if err := h.repo.CreateVariant(ctx, variant); err != nil {
		h.logger.WithError(err).Error("failed to create variant")
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "failed to create variant")
		return
	}

	for key, value := range req.Attributes {
		err := h.repo.UpsertVariantAttribute(ctx, &models.VariantAttribute{
			VariantID: variant.ID,
			Key:       key,
			Value:     value,
			DataType:  models.AttributeTypeString,
			Category:  importer.AttributeCategoryFor(key),
		})
		if err != nil {
			h.logger.WithError(err).Error("failed to save variant attribute")
			respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "failed to save variant attributes")
			return
		}
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: variant})
}

// SyncProduct pushes one product to the configured Shopify store
// POST /api/v1/products/:id/sync
func (h *ProductsHandler) SyncProduct(c *gin.Context) {
	if !h.shopify.Enabled() {
		respondError(c, http.StatusConflict, "SYNC_DISABLED", "Shopify sync is not configured")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	product, err := h.repo.GetProductByID(ctx, id, false)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "SYNC_FAILED", "failed to load product")
		return
	}
	if product == nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}

	input := clients.ShopifyProductInput{
		Title:  product.Name,
		Handle: product.Slug,
		Status: shopifyStatus(product.Status),
	}
	if product.Description != nil {
		input.DescriptionHTML = *product.Description
	}

	gid, err := h.shopify.UpsertProduct(ctx, input)
	if err != nil {
		h.logger.WithError(err).Error("shopify sync failed")
		respondError(c, http.StatusBadGateway, "SYNC_FAILED", err.Error())
		return
	}

	h.logger.WithFields(logrus.Fields{"productId": product.ID, "shopifyId": gid}).Info("product synced to Shopify")
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: gin.H{"shopifyProductId": gid}})
}

func shopifyStatus(status models.ProductStatus) string {
	if status == models.ProductStatusActive {
		return "ACTIVE"
	}
	return "DRAFT"
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "invalid product ID")
		return uuid.Nil, false
	}
	return id, true
}

func stringsToJSONArray(items []string) *models.JSONArray {
	if len(items) == 0 {
		return nil
	}
	arr := make(models.JSONArray, 0, len(items))
	for _, item := range items {
		arr = append(arr, item)
	}
	return &arr
}
