package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abgdnv/marketplace/internal/cache"
	"github.com/abgdnv/marketplace/internal/store"
	"github.com/google/uuid"
)

// CatalogService defines the methods for browsing and managing products.
type CatalogService interface {
	// List returns one page of products and the total number of matches.
	List(ctx context.Context, query ProductQuery) (*ProductPageDto, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// Create adds a new product to the catalog.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update applies a partial update.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id uuid.UUID, patch ProductUpdateDto) (*ProductDto, error)

	// DeleteByID removes a product. Favorites pointing at it are kept.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// ProductQuery selects one catalog page. Page is 1-based.
type ProductQuery struct {
	Page   int32
	Limit  int32
	Search string
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductPageDto is one page of the catalog.
type ProductPageDto struct {
	Products []ProductDto `json:"products"`
	Total    int64        `json:"total"`
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Title       string   `json:"title"       validate:"required,max=200"`
	Price       *float64 `json:"price"       validate:"required,gte=0"`
	Description string   `json:"description" validate:"required"`
	Image       string   `json:"image"       validate:"required"`
}

// Normalize trims the text fields in place.
func (d *ProductCreateDto) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Image = strings.TrimSpace(d.Image)
}

// ProductUpdateDto carries a partial update. Absent fields stay unchanged.
type ProductUpdateDto struct {
	Title       *string  `json:"title"       validate:"omitnil,min=1,max=200"`
	Price       *float64 `json:"price"       validate:"omitnil,gte=0"`
	Description *string  `json:"description" validate:"omitnil,min=1"`
	Image       *string  `json:"image"       validate:"omitnil,min=1"`
}

// Normalize trims the text fields in place.
func (d *ProductUpdateDto) Normalize() {
	for _, f := range []*string{d.Title, d.Description, d.Image} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// Empty reports whether the update carries no field at all.
func (d *ProductUpdateDto) Empty() bool {
	return d.Title == nil && d.Price == nil && d.Description == nil && d.Image == nil
}

// Catalog implements CatalogService. List pages are served from the cache when possible.
type Catalog struct {
	repository store.ProductStore
	cache      cache.CatalogCache
}

// NewCatalogService creates a catalog service. A nil cache disables caching.
func NewCatalogService(repo store.ProductStore, c cache.CatalogCache) *Catalog {
	if c == nil {
		c = cache.Noop{}
	}
	return &Catalog{repository: repo, cache: c}
}

func (s *Catalog) List(ctx context.Context, query ProductQuery) (*ProductPageDto, error) {
	key := cache.PageKey(query.Page, query.Limit, query.Search)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var page ProductPageDto
		if err := json.Unmarshal(raw, &page); err == nil {
			return &page, nil
		}
		slog.WarnContext(ctx, "Discarding undecodable cached catalog page", "key", key)
	}

	products, total, err := s.repository.ListProducts(ctx, store.ProductFilter{
		Search: query.Search,
		Offset: (int64(query.Page) - 1) * int64(query.Limit),
		Limit:  query.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	page := &ProductPageDto{Products: make([]ProductDto, len(products)), Total: total}
	for i := range products {
		page.Products[i] = *toProductDto(&products[i])
	}

	if raw, err := json.Marshal(page); err == nil {
		s.cache.Set(ctx, key, raw)
	}
	return page, nil
}

func (s *Catalog) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.repository.FindProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return toProductDto(product), nil
}

func (s *Catalog) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	price := 0.0
	if product.Price != nil {
		price = *product.Price
	}
	created, err := s.repository.CreateProduct(ctx, store.Product{
		Title:       product.Title,
		Price:       price,
		Description: product.Description,
		Image:       product.Image,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.cache.Invalidate(ctx)
	return toProductDto(created), nil
}

func (s *Catalog) Update(ctx context.Context, id uuid.UUID, patch ProductUpdateDto) (*ProductDto, error) {
	updated, err := s.repository.UpdateProduct(ctx, id, store.ProductPatch{
		Title:       patch.Title,
		Price:       patch.Price,
		Description: patch.Description,
		Image:       patch.Image,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	s.cache.Invalidate(ctx)
	return toProductDto(updated), nil
}

func (s *Catalog) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := s.repository.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// toProductDto converts a store.Product to a ProductDto.
func toProductDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:          product.ID.String(),
		Title:       product.Title,
		Price:       product.Price,
		Description: product.Description,
		Image:       product.Image,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}
