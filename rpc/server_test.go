package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lendpool/core/state"
	nativecommon "lendpool/native/common"
	"lendpool/native/lending"
	"lendpool/native/oracle"
	"lendpool/storage"
)

const (
	adminAddr = "ops"
	submitter = "rate-model"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	manager := state.NewManager(db)

	rates := oracle.New(adminAddr, time.Hour)
	require.NoError(t, rates.SetAuthorizedSubmitter(adminAddr, submitter, true))

	engine := lending.NewEngine("lendpool/vault", "lendpool/collateral")
	engine.SetState(manager)
	engine.SetOracle(rates)
	engine.SetAdmin(adminAddr)
	engine.SetPauses(nativecommon.NewPauses())

	srv := NewServer(ServerConfig{Engine: engine, Oracle: rates})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func mustStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, want, resp.StatusCode)
}

func setupMarket(t *testing.T, ts *httptest.Server, asset string) {
	t.Helper()
	mustStatus(t, post(t, ts, "/v1/admin/assets", configureAssetRequest{
		Caller:                  adminAddr,
		Asset:                   asset,
		CollateralFactorBps:     8000,
		LiquidationThresholdBps: 8500,
		LiquidationBonusBps:     500,
		ReserveFactorBps:        1000,
	}), http.StatusOK)
	mustStatus(t, post(t, ts, "/v1/oracle/rates", submitRateRequest{
		Caller: submitter, Asset: asset, RateBps: 500, Volatility: 10,
	}), http.StatusOK)
}

func fund(t *testing.T, ts *httptest.Server, addr, asset, amount string) {
	t.Helper()
	mustStatus(t, post(t, ts, "/v1/admin/fund", fundRequest{
		Caller: adminAddr, Address: addr, Asset: asset, Amount: amount,
	}), http.StatusOK)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/healthz")
	mustStatus(t, resp, http.StatusOK)
}

func TestSupplyAndMarketSnapshot(t *testing.T) {
	ts := newTestServer(t)
	setupMarket(t, ts, "USDC")
	fund(t, ts, "alice", "USDC", "1000")

	mustStatus(t, post(t, ts, "/v1/lending/supply", supplyRequest{
		From: "alice", Asset: "USDC", Amount: "600",
	}), http.StatusOK)

	resp := get(t, ts, "/v1/lending/markets/USDC")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var market struct {
		Config struct {
			Asset         string      `json:"asset"`
			TotalSupplied json.Number `json:"totalSupplied"`
		} `json:"config"`
		BorrowRateBps uint64 `json:"borrowRateBps"`
		RateIsFresh   bool   `json:"rateIsFresh"`
	}
	decodeBody(t, resp, &market)
	require.Equal(t, "USDC", market.Config.Asset)
	require.Equal(t, "600", market.Config.TotalSupplied.String())
	require.Equal(t, uint64(500), market.BorrowRateBps)
	require.True(t, market.RateIsFresh)
}

func TestBorrowRepayRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	setupMarket(t, ts, "USDC")
	setupMarket(t, ts, "ZNHB")
	fund(t, ts, "alice", "USDC", "1000")
	fund(t, ts, "bob", "ZNHB", "200")

	mustStatus(t, post(t, ts, "/v1/lending/supply", supplyRequest{
		From: "alice", Asset: "USDC", Amount: "1000",
	}), http.StatusOK)

	mustStatus(t, post(t, ts, "/v1/lending/borrow", borrowRequest{
		From: "bob", Asset: "USDC", Amount: "100",
		CollateralAsset: "ZNHB", CollateralAmount: "200",
	}), http.StatusOK)

	resp := get(t, ts, "/v1/lending/accounts/bob/borrow/USDC")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pos struct {
		Principal        json.Number `json:"principal"`
		CollateralAmount json.Number `json:"collateralAmount"`
	}
	decodeBody(t, resp, &pos)
	require.Equal(t, "100", pos.Principal.String())
	require.Equal(t, "200", pos.CollateralAmount.String())

	resp = post(t, ts, "/v1/lending/repay", repayRequest{
		From: "bob", Asset: "USDC", Amount: "500",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var repay repayResponse
	decodeBody(t, resp, &repay)
	require.Equal(t, "100", repay.Repaid)

	// Health endpoint reports the sentinel once the debt is gone.
	resp = get(t, ts, "/v1/lending/accounts/bob/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]string
	decodeBody(t, resp, &health)
	require.NotEmpty(t, health["healthFactor"])
}

func TestBorrowInsufficientCollateralMapsToConflict(t *testing.T) {
	ts := newTestServer(t)
	setupMarket(t, ts, "USDC")
	setupMarket(t, ts, "ZNHB")
	fund(t, ts, "alice", "USDC", "1000")
	fund(t, ts, "bob", "ZNHB", "150")

	mustStatus(t, post(t, ts, "/v1/lending/supply", supplyRequest{
		From: "alice", Asset: "USDC", Amount: "1000",
	}), http.StatusOK)

	mustStatus(t, post(t, ts, "/v1/lending/borrow", borrowRequest{
		From: "bob", Asset: "USDC", Amount: "100",
		CollateralAsset: "ZNHB", CollateralAmount: "150",
	}), http.StatusConflict)
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	setupMarket(t, ts, "USDC")

	// Unauthorized admin call.
	mustStatus(t, post(t, ts, "/v1/admin/assets", configureAssetRequest{
		Caller: "mallory", Asset: "ATOM", CollateralFactorBps: 8000, LiquidationThresholdBps: 8500,
	}), http.StatusForbidden)

	// Unknown asset.
	mustStatus(t, post(t, ts, "/v1/lending/supply", supplyRequest{
		From: "alice", Asset: "ATOM", Amount: "10",
	}), http.StatusNotFound)

	// Malformed amount.
	mustStatus(t, post(t, ts, "/v1/lending/supply", supplyRequest{
		From: "alice", Asset: "USDC", Amount: "ten",
	}), http.StatusBadRequest)

	// Repay with no open borrow.
	mustStatus(t, post(t, ts, "/v1/lending/repay", repayRequest{
		From: "alice", Asset: "USDC", Amount: "10",
	}), http.StatusNotFound)

	// Oracle submission from an unauthorized caller.
	mustStatus(t, post(t, ts, "/v1/oracle/rates", submitRateRequest{
		Caller: "mallory", Asset: "USDC", RateBps: 500,
	}), http.StatusForbidden)

	// Rate above 100%.
	mustStatus(t, post(t, ts, "/v1/oracle/rates", submitRateRequest{
		Caller: submitter, Asset: "USDC", RateBps: 10_500,
	}), http.StatusBadRequest)
}

func TestPausedPoolMapsToServiceUnavailable(t *testing.T) {
	ts := newTestServer(t)
	setupMarket(t, ts, "USDC")
	fund(t, ts, "alice", "USDC", "100")

	mustStatus(t, post(t, ts, "/v1/admin/pause", pauseRequest{Caller: adminAddr}), http.StatusOK)
	mustStatus(t, post(t, ts, "/v1/lending/supply", supplyRequest{
		From: "alice", Asset: "USDC", Amount: "50",
	}), http.StatusServiceUnavailable)
	mustStatus(t, post(t, ts, "/v1/admin/unpause", pauseRequest{Caller: adminAddr}), http.StatusOK)
	mustStatus(t, post(t, ts, "/v1/lending/supply", supplyRequest{
		From: "alice", Asset: "USDC", Amount: "50",
	}), http.StatusOK)
}

func TestGetRateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	setupMarket(t, ts, "USDC")

	resp := get(t, ts, "/v1/oracle/rates/USDC")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rate rateResponse
	decodeBody(t, resp, &rate)
	require.Equal(t, uint64(500), rate.RateBps)
	require.Equal(t, uint64(10), rate.Volatility)
	require.True(t, rate.Fresh)
	require.NotEmpty(t, rate.LastUpdated)

	// Unknown assets report a zero rate, never an error.
	resp = get(t, ts, "/v1/oracle/rates/ATOM")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var missing rateResponse
	decodeBody(t, resp, &missing)
	require.Zero(t, missing.RateBps)
	require.False(t, missing.Fresh)
}

func TestBatchSubmitRates(t *testing.T) {
	ts := newTestServer(t)
	setupMarket(t, ts, "USDC")
	setupMarket(t, ts, "ZNHB")

	mustStatus(t, post(t, ts, "/v1/oracle/rates/batch", batchSubmitRatesRequest{
		Caller:       submitter,
		Assets:       []string{"USDC", "ZNHB"},
		Rates:        []uint64{700, 900},
		Volatilities: []uint64{5, 8},
	}), http.StatusOK)

	resp := get(t, ts, "/v1/oracle/rates/ZNHB")
	var rate rateResponse
	decodeBody(t, resp, &rate)
	require.Equal(t, uint64(900), rate.RateBps)

	// Length mismatch rejects the whole batch.
	mustStatus(t, post(t, ts, "/v1/oracle/rates/batch", batchSubmitRatesRequest{
		Caller: submitter,
		Assets: []string{"USDC", "ZNHB"},
		Rates:  []uint64{700},
	}), http.StatusBadRequest)
}

func TestOracleRateLimiting(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	manager := state.NewManager(db)

	rates := oracle.New(adminAddr, time.Hour)
	require.NoError(t, rates.SetAuthorizedSubmitter(adminAddr, submitter, true))

	engine := lending.NewEngine("lendpool/vault", "lendpool/collateral")
	engine.SetState(manager)
	engine.SetOracle(rates)
	engine.SetAdmin(adminAddr)
	engine.SetPauses(nativecommon.NewPauses())

	srv := NewServer(ServerConfig{
		Engine:             engine,
		Oracle:             rates,
		RateLimitPerSecond: 0.001,
		RateLimitBurst:     1,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	first := post(t, ts, "/v1/oracle/rates", submitRateRequest{
		Caller: submitter, Asset: "USDC", RateBps: 500,
	})
	mustStatus(t, first, http.StatusOK)

	second := post(t, ts, "/v1/oracle/rates", submitRateRequest{
		Caller: submitter, Asset: "USDC", RateBps: 500,
	})
	mustStatus(t, second, http.StatusTooManyRequests)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/healthz")
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "abc-123")
	echoed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer echoed.Body.Close()
	require.Equal(t, "abc-123", echoed.Header.Get("X-Request-Id"))
}
