package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeffreylongo/lodge-api/internal/models"
)

// ShopRepository reads the product catalog from the upstream commerce
// endpoint. The upstream is opaque: whatever serves the shop publishes a
// JSON product array and this repository only decodes the listed fields.
type ShopRepository struct {
	client     *http.Client
	catalogURL string
	timeout    time.Duration
}

// NewShopRepository constructs a shop repository.
func NewShopRepository(client *http.Client, catalogURL string, timeout time.Duration) *ShopRepository {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShopRepository{client: client, catalogURL: catalogURL, timeout: timeout}
}

// FetchCatalog retrieves the full product list.
func (r *ShopRepository) FetchCatalog(ctx context.Context) ([]models.Product, error) {
	if r.catalogURL == "" {
		return nil, fmt.Errorf("no catalog url configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, r.catalogURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return products, nil
}
