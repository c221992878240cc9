package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	nativecommon "lendpool/native/common"
	"lendpool/native/lending"
	"lendpool/native/oracle"
)

// Amounts travel as decimal strings so callers never lose precision to
// floating point JSON numbers.

type supplyRequest struct {
	From   string `json:"from"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type withdrawRequest struct {
	From   string `json:"from"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type borrowRequest struct {
	From             string `json:"from"`
	Asset            string `json:"asset"`
	Amount           string `json:"amount"`
	CollateralAsset  string `json:"collateralAsset"`
	CollateralAmount string `json:"collateralAmount"`
}

type repayRequest struct {
	From   string `json:"from"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type repayResponse struct {
	Repaid string `json:"repaid"`
}

type liquidateRequest struct {
	Liquidator  string `json:"liquidator"`
	Borrower    string `json:"borrower"`
	Asset       string `json:"asset"`
	RepayAmount string `json:"repayAmount"`
}

type liquidateResponse struct {
	Repaid string `json:"repaid"`
	Seized string `json:"seized"`
}

type submitRateRequest struct {
	Caller     string `json:"caller"`
	Asset      string `json:"asset"`
	RateBps    uint64 `json:"rateBps"`
	Volatility uint64 `json:"volatility"`
}

type batchSubmitRatesRequest struct {
	Caller       string   `json:"caller"`
	Assets       []string `json:"assets"`
	Rates        []uint64 `json:"rates"`
	Volatilities []uint64 `json:"volatilities"`
}

type rateResponse struct {
	Asset       string `json:"asset"`
	RateBps     uint64 `json:"rateBps"`
	Volatility  uint64 `json:"volatility"`
	LastUpdated string `json:"lastUpdated"`
	Fresh       bool   `json:"fresh"`
}

type configureAssetRequest struct {
	Caller                  string `json:"caller"`
	Asset                   string `json:"asset"`
	CollateralFactorBps     uint64 `json:"collateralFactorBps"`
	LiquidationThresholdBps uint64 `json:"liquidationThresholdBps"`
	LiquidationBonusBps     uint64 `json:"liquidationBonusBps"`
	ReserveFactorBps        uint64 `json:"reserveFactorBps"`
}

type setAssetActiveRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Active bool   `json:"active"`
}

type pauseRequest struct {
	Caller string `json:"caller"`
}

type submitterRequest struct {
	Caller     string `json:"caller"`
	Submitter  string `json:"submitter"`
	Authorized bool   `json:"authorized"`
}

type fundRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func parseAmount(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func decode(r *http.Request, into any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestBodyLimit))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps engine and oracle sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lending.ErrInvalidAmount),
		errors.Is(err, lending.ErrInvalidParameter),
		errors.Is(err, lending.ErrCollateralMismatch),
		errors.Is(err, oracle.ErrInvalidRate),
		errors.Is(err, oracle.ErrInvalidAsset),
		errors.Is(err, oracle.ErrLengthMismatch):
		return http.StatusBadRequest
	case errors.Is(err, lending.ErrUnauthorized),
		errors.Is(err, oracle.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, lending.ErrAssetNotActive),
		errors.Is(err, lending.ErrNoDebt):
		return http.StatusNotFound
	case errors.Is(err, lending.ErrInsufficientBalance),
		errors.Is(err, lending.ErrInsufficientLiquidity),
		errors.Is(err, lending.ErrInsufficientCollateral),
		errors.Is(err, lending.ErrWouldUndercollateralize),
		errors.Is(err, lending.ErrPositionHealthy),
		errors.Is(err, lending.ErrStaleRate):
		return http.StatusConflict
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
