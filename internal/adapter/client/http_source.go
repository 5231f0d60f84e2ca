package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPSource fetches the catalog from a running server's public API.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := s.get(ctx, "/api/products", &products); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return products, nil
}

func (s *HTTPSource) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := s.get(ctx, "/api/categories", &categories); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return categories, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
