// Package catalog talks to the public Open Food Facts product database.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnavailable reports a transport or protocol failure talking to the catalog
var ErrUnavailable = errors.New("product catalog unavailable")

const maxResponseBytes = 4 << 20

type productResponse struct {
	Status  int `json:"status"`
	Product *struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		Quantity    string `json:"quantity"`
		ImageURL    string `json:"image_url"`
	} `json:"product"`
}

// OpenFoodFacts implements domain.Catalog over the v0 product API
type OpenFoodFacts struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewOpenFoodFacts creates a catalog client; requests are traced through otelhttp
func NewOpenFoodFacts(baseURL string, timeout time.Duration, tracer trace.Tracer, logger *slog.Logger) *OpenFoodFacts {
	return &OpenFoodFacts{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tracer: tracer,
		logger: logger,
	}
}

// Lookup fetches a product by symbol. Missing optional fields are left empty;
// the lookup service applies display defaults.
func (c *OpenFoodFacts) Lookup(ctx context.Context, symbol domain.Symbol) (*domain.ProductRecord, error) {
	ctx, span := c.tracer.Start(ctx, "OpenFoodFacts.Lookup")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", symbol.String()))

	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(symbol.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "inventory-scanner/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Catalog request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		span.SetStatus(codes.Error, "Product not in catalog")
		return nil, domain.ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Catalog returned an error status")
		return nil, err
	}

	var payload productResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid catalog response")
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	if payload.Status != 1 || payload.Product == nil {
		c.logger.DebugContext(ctx, "Product not in catalog",
			slog.String("symbol", symbol.String()),
			slog.Int("status", payload.Status),
		)
		span.SetStatus(codes.Error, "Product not in catalog")
		return nil, domain.ErrProductNotFound
	}

	record := &domain.ProductRecord{
		Symbol:        symbol,
		Name:          strings.TrimSpace(payload.Product.ProductName),
		Brand:         strings.TrimSpace(payload.Product.Brands),
		QuantityLabel: strings.TrimSpace(payload.Product.Quantity),
	}
	if img := strings.TrimSpace(payload.Product.ImageURL); img != "" {
		record.ImageURL = &img
	}

	span.SetStatus(codes.Ok, "Product found in catalog")
	return record, nil
}
