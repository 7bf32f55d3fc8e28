package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

const dateLayout = "2006-01-02"

// APIError is returned when the orders API answers with a failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("orders api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("orders api: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match the failure with errors.Is.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return domainErrors.ErrNotFound
	}
	return domainErrors.ErrRemoteRejected
}

// Client exposes the order resource of the REST API.
type Client interface {
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, extra *model.StatusExtra) error
	Update(ctx context.Context, id int64, fields model.OrderUpdate) error
	Delete(ctx context.Context, id int64) error
	Create(ctx context.Context, draft model.OrderDraft) (*model.CreatedOrder, error)
}

// HTTPClient implements Client via HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// envelope mirrors the JSON wrapper used by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
	model.StatusExtra
}

// NewHTTPClient creates the orders API client.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse orders api url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("orders api url must be absolute")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// List fetches orders, optionally filtered by status or day.
func (c *HTTPClient) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if !filter.Date.IsZero() {
		query.Set("date", filter.Date.Format(dateLayout))
	}

	env, err := c.do(ctx, http.MethodGet, c.endpoint(query, "orders"), nil)
	if err != nil {
		return nil, err
	}
	var orders []model.Order
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &orders); err != nil {
			return nil, fmt.Errorf("decode orders: %w", err)
		}
	}
	return orders, nil
}

// UpdateStatus sends the new status together with optional extra fields.
func (c *HTTPClient) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, extra *model.StatusExtra) error {
	body := statusRequest{Status: status}
	if extra != nil {
		body.StatusExtra = *extra
	}
	_, err := c.do(ctx, http.MethodPut, c.endpoint(nil, "orders", strconv.FormatInt(id, 10)), body)
	return err
}

// Update sends a partial update of non-status fields.
func (c *HTTPClient) Update(ctx context.Context, id int64, fields model.OrderUpdate) error {
	_, err := c.do(ctx, http.MethodPut, c.endpoint(nil, "orders", strconv.FormatInt(id, 10)), fields)
	return err
}

// Delete removes the order record.
func (c *HTTPClient) Delete(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, c.endpoint(nil, "orders", strconv.FormatInt(id, 10)), nil)
	return err
}

// Create registers a new order.
func (c *HTTPClient) Create(ctx context.Context, draft model.OrderDraft) (*model.CreatedOrder, error) {
	env, err := c.do(ctx, http.MethodPost, c.endpoint(nil, "orders"), draft)
	if err != nil {
		return nil, err
	}
	var created model.CreatedOrder
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return nil, fmt.Errorf("decode created order: %w", err)
	}
	return &created, nil
}

func (c *HTTPClient) endpoint(query url.Values, elems ...string) string {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(append([]string{"/", endpoint.Path}, elems...)...)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String()
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return &envelope{Success: true}, nil
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= 300 || !env.Success {
		c.logger.Error("orders api request failed",
			slog.String("method", method),
			slog.String("url", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("message", env.Message),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}
