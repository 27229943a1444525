package oanda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"forex-trading-bot/internal/types"
)

func testClient(t *testing.T, mode string, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Params{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		AccountID: "101-001",
		Mode:      mode,
	})
}

func TestGetAccountInfo(t *testing.T) {
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/accounts/101-001" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Missing auth header, got %q", got)
		}
		w.Write([]byte(`{"account":{"balance":"1000.50","currency":"USD","marginRate":"0.02","unrealizedPL":"12.30","pl":"-5.10"}}`))
	}))

	info, err := c.GetAccountInfo(context.Background())
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if info.Balance != 1000.50 || info.Currency != "USD" {
		t.Errorf("Unexpected account: %+v", info)
	}
	if info.UnrealizedPnL != 12.30 || info.RealizedPnL != -5.10 {
		t.Errorf("PnL lost: %+v", info)
	}
}

func TestGetPricesSkipsEmptyLadders(t *testing.T) {
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[
			{"instrument":"EUR_USD","time":"2025-03-12T12:00:00.000000000Z","bids":[{"price":"1.08900"}],"asks":[{"price":"1.08920"}]},
			{"instrument":"GBP_USD","time":"2025-03-12T12:00:00.000000000Z","bids":[],"asks":[]}
		]}`))
	}))

	prices, err := c.GetPrices(context.Background(), []string{"EUR_USD", "GBP_USD"})
	if err != nil {
		t.Fatalf("GetPrices failed: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("Expected 1 quote, got %d", len(prices))
	}
	q := prices["EUR_USD"]
	if q.Bid != 1.089 || q.Ask != 1.0892 {
		t.Errorf("Unexpected quote: %+v", q)
	}
}

func TestGetCandlesFiltersIncomplete(t *testing.T) {
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v3/instruments/EUR_USD/candles") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("granularity") != "M5" || r.URL.Query().Get("count") != "100" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"candles":[
			{"complete":true,"time":"2025-03-12T11:55:00.000000000Z","volume":120,"mid":{"o":"1.0890","h":"1.0895","l":"1.0885","c":"1.0892"}},
			{"complete":false,"time":"2025-03-12T12:00:00.000000000Z","volume":10,"mid":{"o":"1.0892","h":"1.0893","l":"1.0891","c":"1.0892"}}
		]}`))
	}))

	candles, err := c.GetCandles(context.Background(), "EUR_USD", "M5", 100)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("Expected only completed bars, got %d", len(candles))
	}
	if candles[0].Close != 1.0892 || candles[0].Vol != 120 {
		t.Errorf("Unexpected candle: %+v", candles[0])
	}
}

func TestPlaceOrderDryRunNeverHitsAPI(t *testing.T) {
	c := testClient(t, "DRY_RUN", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("DRY_RUN order must not reach the API: %s", r.URL.Path)
	}))

	fill, err := c.PlaceOrder(context.Background(), types.OrderRequest{
		Instrument: "EUR_USD",
		Units:      1000,
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if !strings.HasPrefix(fill.OrderID, "dry-") {
		t.Errorf("Expected simulated order ID, got %s", fill.OrderID)
	}
	if fill.Units != 1000 || fill.Instrument != "EUR_USD" {
		t.Errorf("Unexpected fill: %+v", fill)
	}
}

func TestPlaceOrderZeroUnits(t *testing.T) {
	c := testClient(t, "DRY_RUN", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	if _, err := c.PlaceOrder(context.Background(), types.OrderRequest{Instrument: "EUR_USD"}); err == nil {
		t.Error("Expected error for zero-unit order")
	}
}

func TestPlaceOrderLive(t *testing.T) {
	var received orderBody
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/accounts/101-001/orders" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode order body: %v", err)
		}
		w.Write([]byte(`{"orderFillTransaction":{"id":"7001","price":"1.08920","time":"2025-03-12T12:00:00.000000000Z","units":"1000.00"}}`))
	}))

	fill, err := c.PlaceOrder(context.Background(), types.OrderRequest{
		Instrument: "EUR_USD",
		Units:      1000,
		StopLoss:   1.0842,
		TakeProfit: 1.0992,
		ClientID:   "abc",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if fill.OrderID != "7001" || fill.Price != 1.0892 {
		t.Errorf("Unexpected fill: %+v", fill)
	}

	if received.Order.Type != "MARKET" || received.Order.Units != "1000.00" {
		t.Errorf("Unexpected order body: %+v", received.Order)
	}
	if received.Order.StopLossOnFill == nil || received.Order.StopLossOnFill.Price != "1.08420" {
		t.Errorf("Stop loss not formatted to 5 decimals: %+v", received.Order.StopLossOnFill)
	}
	if received.Order.TakeProfitOn == nil || received.Order.TakeProfitOn.Price != "1.09920" {
		t.Errorf("Take profit not formatted to 5 decimals: %+v", received.Order.TakeProfitOn)
	}
}

func TestPlaceOrderNotFilled(t *testing.T) {
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := c.PlaceOrder(context.Background(), types.OrderRequest{Instrument: "EUR_USD", Units: 100})
	if err == nil || !strings.Contains(err.Error(), "not filled") {
		t.Errorf("Expected not-filled error, got %v", err)
	}
}

func TestClosePositionSubmitsOppositeUnits(t *testing.T) {
	var received orderBody
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/openPositions"):
			w.Write([]byte(`{"positions":[{"instrument":"EUR_USD","long":{"units":"100","unrealizedPL":"2.5"},"short":{"units":"0","unrealizedPL":"0"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/orders"):
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("Failed to decode order body: %v", err)
			}
			w.Write([]byte(`{"orderFillTransaction":{"id":"7002","price":"1.08900","time":"2025-03-12T12:00:00.000000000Z","units":"-100.00"}}`))
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))

	if _, err := c.ClosePosition(context.Background(), "EUR_USD", 0); err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	if received.Order.Units != "-100.00" {
		t.Errorf("Expected opposite units -100.00, got %s", received.Order.Units)
	}
}

func TestClosePositionMissing(t *testing.T) {
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[]}`))
	}))

	if _, err := c.ClosePosition(context.Background(), "EUR_USD", 0); err == nil {
		t.Error("Expected error for missing position")
	}
}

func TestIsSpreadAcceptable(t *testing.T) {
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 2 pip spread on EUR_USD.
		w.Write([]byte(`{"prices":[{"instrument":"EUR_USD","time":"2025-03-12T12:00:00.000000000Z","bids":[{"price":"1.08900"}],"asks":[{"price":"1.08920"}]}]}`))
	}))

	ok, err := c.IsSpreadAcceptable(context.Background(), "EUR_USD", 5)
	if err != nil {
		t.Fatalf("IsSpreadAcceptable failed: %v", err)
	}
	if !ok {
		t.Error("2 pip spread should be acceptable at a 5 pip cap")
	}

	ok, err = c.IsSpreadAcceptable(context.Background(), "EUR_USD", 1)
	if err != nil {
		t.Fatalf("IsSpreadAcceptable failed: %v", err)
	}
	if ok {
		t.Error("2 pip spread should be rejected at a 1 pip cap")
	}
}

func TestPingFailure(t *testing.T) {
	c := testClient(t, "LIVE", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage":"unauthorized"}`, http.StatusUnauthorized)
	}))

	if err := c.Ping(context.Background()); err == nil {
		t.Error("Expected ping failure on 401")
	}
}
