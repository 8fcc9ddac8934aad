package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeffreylongo/lodge-api/internal/models"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
)

const shopCacheKey = "lodge:shop:catalog"

type catalogReader interface {
	FetchCatalog(ctx context.Context) ([]models.Product, error)
}

// ShopService serves the shop page's product listing from the upstream
// catalog, cached with a TTL so browsing does not hammer the commerce
// endpoint. Cart and checkout stay on the commerce side entirely.
type ShopService struct {
	repo     catalogReader
	store    collectionStore
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewShopService constructs the shop service.
func NewShopService(repo catalogReader, store collectionStore, cacheTTL time.Duration, logger *zap.Logger) *ShopService {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopService{repo: repo, store: store, cacheTTL: cacheTTL, logger: logger}
}

// List returns catalog products matching the filter.
func (s *ShopService) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, *models.Pagination, error) {
	products, err := s.catalog(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "catalog unavailable")
	}

	if filter.Category != "" {
		filtered := make([]models.Product, 0, len(products))
		for _, p := range products {
			if hasCategory(p, filter.Category) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 24
	}

	total := len(products)
	startIdx := (page - 1) * size
	if startIdx > total {
		startIdx = total
	}
	endIdx := startIdx + size
	if endIdx > total {
		endIdx = total
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return products[startIdx:endIdx], pagination, nil
}

func (s *ShopService) catalog(ctx context.Context) ([]models.Product, error) {
	var cached []models.Product
	if s.store != nil {
		if err := s.store.Get(ctx, shopCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	products, err := s.repo.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Set(ctx, shopCacheKey, products, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return products, nil
}

func hasCategory(p models.Product, category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
