package pyth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:        server.URL,
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestClient_Name(t *testing.T) {
	client, _ := NewClient(ClientConfig{})
	if got := client.Name(); got != "pyth" {
		t.Errorf("Name() = %v, want pyth", got)
	}
}

func TestClient_Exists(t *testing.T) {
	client, _ := NewClient(ClientConfig{})

	tests := []struct {
		asset string
		want  bool
	}{
		{"eth", true},
		{"ETH", true},
		{"usdc", true},
		{"btc", true},
		{"fuel", true},
		{"doge", false},
	}

	for _, tt := range tests {
		t.Run(tt.asset, func(t *testing.T) {
			got, err := client.Exists(context.Background(), tt.asset)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.asset, got, tt.want)
			}
		})
	}
}

func TestClient_GetPrice(t *testing.T) {
	tests := []struct {
		name           string
		asset          string
		serverResponse string
		serverStatus   int
		wantPrice      string
		wantErr        bool
	}{
		{
			name:  "eth price scaled by exponent",
			asset: "eth",
			serverResponse: `{
				"parsed": [
					{
						"id": "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
						"price": {
							"price": "250012345678",
							"conf": "98765432",
							"expo": -8,
							"publish_time": 1704067200
						}
					}
				]
			}`,
			serverStatus: http.StatusOK,
			wantPrice:    "2500.12345678",
		},
		{
			name:  "positive exponent",
			asset: "btc",
			serverResponse: `{
				"parsed": [
					{
						"id": "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
						"price": {
							"price": "45",
							"conf": "1",
							"expo": 3,
							"publish_time": 1704067200
						}
					}
				]
			}`,
			serverStatus: http.StatusOK,
			wantPrice:    "45000",
		},
		{
			name:           "empty parsed list",
			asset:          "eth",
			serverResponse: `{"parsed": []}`,
			serverStatus:   http.StatusOK,
			wantErr:        true,
		},
		{
			name:           "client error not retried",
			asset:          "eth",
			serverResponse: `{"message": "unknown price feed"}`,
			serverStatus:   http.StatusBadRequest,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v2/updates/price/latest" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.serverStatus)
				_, _ = w.Write([]byte(tt.serverResponse))
			})

			quote, err := client.GetPrice(context.Background(), tt.asset)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetPrice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if !quote.Price.Equal(decimal.RequireFromString(tt.wantPrice)) {
				t.Errorf("GetPrice() price = %s, want %s", quote.Price, tt.wantPrice)
			}
			if quote.Asset != tt.asset {
				t.Errorf("GetPrice() asset = %s, want %s", quote.Asset, tt.asset)
			}
			if quote.AsOf.Unix() != 1704067200 {
				t.Errorf("GetPrice() asOf = %v, want publish time", quote.AsOf)
			}
		})
	}
}

func TestClient_GetPrice_UnknownAsset(t *testing.T) {
	client, _ := NewClient(ClientConfig{})

	_, err := client.GetPrice(context.Background(), "doge")
	if !errors.Is(err, outbound.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestClient_GetPrice_RetriesServerErrors(t *testing.T) {
	var attempts int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"parsed": [
				{
					"id": "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
					"price": {"price": "250000000000", "conf": "1", "expo": -8, "publish_time": 1704067200}
				}
			]
		}`))
	})

	quote, err := client.GetPrice(context.Background(), "eth")
	if err != nil {
		t.Fatalf("GetPrice() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if !quote.Price.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("GetPrice() price = %s, want 2500", quote.Price)
	}
}
