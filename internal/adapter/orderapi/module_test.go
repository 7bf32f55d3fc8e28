package orderapi

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polkiloo/orderboard/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{OrdersAPIAddress: "http://example.com/api", RequestTimeout: time.Second}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	client, err := newClient(clientParams{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	httpClient, ok := client.(*HTTPClient)
	if !ok {
		t.Fatalf("expected *HTTPClient, got %T", client)
	}
	if httpClient.httpClient.Timeout != time.Second {
		t.Fatalf("expected timeout from config, got %v", httpClient.httpClient.Timeout)
	}
}
