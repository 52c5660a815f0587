package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/memory"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/services/settlement"
)

// stubFiller returns a fixed result or error and captures the last request.
type stubFiller struct {
	result  *entity.FillResult
	err     error
	lastReq *entity.FillRequest
}

func (s *stubFiller) FillOrder(ctx context.Context, req *entity.FillRequest) (*entity.FillResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubPool struct {
	count     int
	available int
}

func (p *stubPool) Count() int     { return p.count }
func (p *stubPool) Available() int { return p.available }

func newTestHandler(filler *stubFiller) *Handler {
	return NewHandler(filler, memory.NewOracleWithDefaults(), &stubPool{count: 3, available: 2}, nil)
}

func validFillBody() string {
	return `{
		"sellTokenName": "eth",
		"sellTokenAmount": "10",
		"buyTokenName": "usdc",
		"recepientAddress": "0x8888888888888888888888888888888888888888888888888888888888888888",
		"scriptRequest": {
			"script": "0x",
			"scriptData": "0x",
			"gasLimit": "0x0",
			"maxFee": "0x0",
			"inputs": [],
			"outputs": [],
			"witnesses": [],
			"type": 0
		}
	}`
}

func postFillOrder(t *testing.T, handler *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/fill-order", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Router(0).ServeHTTP(rec, req)
	return rec
}

func TestFillOrder_Success(t *testing.T) {
	tx := entity.NewScriptTransaction()
	filler := &stubFiller{result: &entity.FillResult{
		FillID:        "ignored",
		TransactionID: "0xabc",
		BuyAmount:     25000,
		Tx:            tx,
	}}

	rec := postFillOrder(t, newTestHandler(filler), validFillBody())

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var resp fillOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "success" || resp.TransactionID != "0xabc" || resp.BuyTokenAmount != "25000" {
		t.Errorf("unexpected response: %+v", resp)
	}

	if filler.lastReq.SellAmount != 10 || filler.lastReq.SellAsset != "eth" {
		t.Errorf("request not mapped: %+v", filler.lastReq)
	}
	if filler.lastReq.ID == "" {
		t.Error("expected an assigned fill ID")
	}
}

func TestFillOrder_NumericAmountAccepted(t *testing.T) {
	filler := &stubFiller{result: &entity.FillResult{Tx: entity.NewScriptTransaction()}}
	body := strings.Replace(validFillBody(), `"sellTokenAmount": "10"`, `"sellTokenAmount": 10`, 1)

	rec := postFillOrder(t, newTestHandler(filler), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if filler.lastReq.SellAmount != 10 {
		t.Errorf("expected sell amount 10, got %d", filler.lastReq.SellAmount)
	}
}

func TestFillOrder_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing sell token", strings.Replace(validFillBody(), `"sellTokenName": "eth",`, "", 1)},
		{"missing recipient", strings.Replace(validFillBody(),
			`"recepientAddress": "0x8888888888888888888888888888888888888888888888888888888888888888",`, "", 1)},
		{"zero amount", strings.Replace(validFillBody(), `"sellTokenAmount": "10"`, `"sellTokenAmount": "0"`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filler := &stubFiller{}
			rec := postFillOrder(t, newTestHandler(filler), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if filler.lastReq != nil {
				t.Error("filler must not be called for a rejected body")
			}
		})
	}
}

func TestFillOrder_EscrowForwarded(t *testing.T) {
	filler := &stubFiller{result: &entity.FillResult{Tx: entity.NewScriptTransaction()}}
	body := strings.Replace(validFillBody(), `"scriptRequest": {`, `"escrow": {
		"address": "0x1111111111111111111111111111111111111111111111111111111111111111",
		"assetIn": "0x2222222222222222222222222222222222222222222222222222222222222222",
		"assetOut": "0x3333333333333333333333333333333333333333333333333333333333333333",
		"minimumOutput": "5",
		"recipient": "0x8888888888888888888888888888888888888888888888888888888888888888",
		"fundingTx": {
			"script": "0x", "scriptData": "0x", "gasLimit": "0x0", "maxFee": "0x0",
			"inputs": [], "outputs": [], "witnesses": [], "type": 0
		}
	},
	"scriptRequest": {`, 1)

	rec := postFillOrder(t, newTestHandler(filler), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	escrow := filler.lastReq.Escrow
	if escrow == nil {
		t.Fatal("escrow block not forwarded")
	}
	if escrow.Config.MinimumOutput != 5 || escrow.FundingTx == nil {
		t.Errorf("escrow not mapped: %+v", escrow)
	}
}

func TestFillOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"backpressure", &settlement.Error{Code: settlement.CodeBackpressure, Message: "no signer"},
			http.StatusServiceUnavailable, "backpressure"},
		{"validation", &settlement.Error{Code: settlement.CodeValidation, Message: "bad token"},
			http.StatusBadRequest, "validation_error"},
		{"invalid escrow", &settlement.Error{Code: settlement.CodeInvalidEscrowParameters, Message: "mismatch"},
			http.StatusBadRequest, "invalid_escrow_parameters"},
		{"insufficient funds", &settlement.Error{Code: settlement.CodeInsufficientFunds, Message: "short"},
			http.StatusBadRequest, "insufficient_funds"},
		{"insufficient liquidity", &settlement.Error{Code: settlement.CodeInsufficientLiquidity, Message: "dry"},
			http.StatusBadRequest, "insufficient_liquidity"},
		{"witness binding", &settlement.Error{Code: settlement.CodeWitnessBinding, Message: "no slot"},
			http.StatusInternalServerError, "witness_binding_failure"},
		{"ledger", &settlement.Error{Code: settlement.CodeLedger, Message: "node down"},
			http.StatusInternalServerError, "ledger_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postFillOrder(t, newTestHandler(&stubFiller{err: tt.err}), validFillBody())
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, resp["code"])
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(resp["error"], tt.err.Error()) {
				t.Error("internal error detail leaked to the caller")
			}
		})
	}
}

func TestGetPrice(t *testing.T) {
	handler := newTestHandler(&stubFiller{})

	req := httptest.NewRequest(http.MethodGet, "/price/eth", nil)
	rec := httptest.NewRecorder()
	handler.Router(0).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["price"] == nil {
		t.Error("expected a price in the response")
	}
}

func TestGetPrice_UnknownToken(t *testing.T) {
	handler := newTestHandler(&stubFiller{})

	req := httptest.NewRequest(http.MethodGet, "/price/doge", nil)
	rec := httptest.NewRecorder()
	handler.Router(0).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(&stubFiller{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.Router(0).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", resp["status"])
	}
	if resp["walletCount"] != float64(3) || resp["walletsAvailable"] != float64(2) {
		t.Errorf("unexpected pool status: %v", resp)
	}
}
