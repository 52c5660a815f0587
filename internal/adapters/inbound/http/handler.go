// handler.go provides the HTTP REST API of the solver.
//
// This inbound adapter exposes the service functionality over HTTP:
//   - POST /fill-order: Settle a fill request against the solver's inventory
//   - GET /price/{tokenName}: Current oracle price for a token
//   - GET /health: Health check endpoint for liveness/readiness probes
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/inbound"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/services/settlement"
)

// Handler implements HTTP handlers for the API.
type Handler struct {
	filler  inbound.OrderFiller
	oracle  outbound.PriceOracle
	pool    inbound.PoolStatus
	logger  *slog.Logger
	started time.Time
}

// NewHandler creates a new HTTP handler.
func NewHandler(filler inbound.OrderFiller, oracle outbound.PriceOracle, pool inbound.PoolStatus, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		filler:  filler,
		oracle:  oracle,
		pool:    pool,
		logger:  logger.With("component", "http-handler"),
		started: time.Now(),
	}
}

// Router builds the chi router with the hygiene middleware stack.
func (h *Handler) Router(requestTimeout time.Duration) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Post("/fill-order", h.FillOrder)
	r.Get("/price/{tokenName}", h.GetPrice)
	r.Get("/health", h.Health)
	return r
}

// flexUint64 decodes a u64 sent either as a decimal JSON string or a number.
type flexUint64 uint64

func (f *flexUint64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", s)
		}
		*f = flexUint64(v)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid amount %s", data)
	}
	*f = flexUint64(n)
	return nil
}

// fillOrderRequest is the POST /fill-order body.
type fillOrderRequest struct {
	SellTokenName    string                    `json:"sellTokenName"`
	SellTokenAmount  flexUint64                `json:"sellTokenAmount"`
	BuyTokenName     string                    `json:"buyTokenName"`
	RecipientAddress string                    `json:"recepientAddress"`
	ScriptRequest    *entity.ScriptTransaction `json:"scriptRequest"`
	Escrow           *escrowWire               `json:"escrow,omitempty"`
}

type escrowWire struct {
	Address       string                    `json:"address"`
	AssetIn       string                    `json:"assetIn"`
	AssetOut      string                    `json:"assetOut"`
	MinimumOutput flexUint64                `json:"minimumOutput"`
	Recipient     string                    `json:"recipient"`
	FundingTx     *entity.ScriptTransaction `json:"fundingTx"`
}

type fillOrderResponse struct {
	Status         string                    `json:"status"`
	TransactionID  string                    `json:"transactionId"`
	BuyTokenAmount string                    `json:"buyTokenAmount"`
	Request        *entity.ScriptTransaction `json:"request"`
}

// FillOrder handles the fill-order endpoint.
func (h *Handler) FillOrder(w http.ResponseWriter, r *http.Request) {
	var body fillOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SellTokenName == "" || body.BuyTokenName == "" || body.SellTokenAmount == 0 ||
		body.RecipientAddress == "" || body.ScriptRequest == nil {
		h.respondError(w, http.StatusBadRequest,
			"sellTokenName, buyTokenName, sellTokenAmount, recepientAddress and scriptRequest are required")
		return
	}

	req := &entity.FillRequest{
		ID:         uuid.NewString(),
		SellAsset:  body.SellTokenName,
		BuyAsset:   body.BuyTokenName,
		SellAmount: uint64(body.SellTokenAmount),
		Recipient:  body.RecipientAddress,
		Tx:         body.ScriptRequest,
		ReceivedAt: time.Now(),
	}
	if body.Escrow != nil {
		req.Escrow = &entity.EscrowParams{
			Address: body.Escrow.Address,
			Config: entity.EscrowConfig{
				AssetIn:       body.Escrow.AssetIn,
				AssetOut:      body.Escrow.AssetOut,
				MinimumOutput: uint64(body.Escrow.MinimumOutput),
				Recipient:     body.Escrow.Recipient,
			},
			FundingTx: body.Escrow.FundingTx,
		}
	}

	result, err := h.filler.FillOrder(r.Context(), req)
	if err != nil {
		h.respondFillError(w, req.ID, err)
		return
	}

	h.respondJSON(w, http.StatusOK, fillOrderResponse{
		Status:         "success",
		TransactionID:  result.TransactionID,
		BuyTokenAmount: strconv.FormatUint(result.BuyAmount, 10),
		Request:        result.Tx,
	})
}

// GetPrice handles the token price endpoint.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	tokenName := chi.URLParam(r, "tokenName")

	quote, err := h.oracle.GetPrice(r.Context(), tokenName)
	if err != nil {
		h.logger.Warn("price lookup failed", "token", tokenName, "error", err)
		h.respondError(w, http.StatusNotFound, "no price for token")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"price": quote.Price,
		"asOf":  quote.AsOf,
	})
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"uptime":           time.Since(h.started).Seconds(),
		"walletCount":      h.pool.Count(),
		"walletsAvailable": h.pool.Available(),
	})
}

// respondFillError maps the fill failure taxonomy onto HTTP status codes.
// Backpressure is retryable and distinct from caller mistakes; internal
// invariant failures surface as 500 without leaking pipeline detail.
func (h *Handler) respondFillError(w http.ResponseWriter, fillID string, err error) {
	code := settlement.CodeOf(err)

	var status int
	switch code {
	case settlement.CodeBackpressure:
		status = http.StatusServiceUnavailable
	case settlement.CodeValidation,
		settlement.CodeInvalidEscrowParameters,
		settlement.CodeInsufficientFunds,
		settlement.CodeInsufficientEscrowFunds,
		settlement.CodeInsufficientLiquidity:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	h.logger.Error("fill order failed", "fillID", fillID, "code", code, "error", err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Failed to fill order"
	}
	h.respondJSON(w, status, map[string]string{
		"error": message,
		"code":  string(code),
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
