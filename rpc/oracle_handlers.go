package rpc

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSubmitRate(w http.ResponseWriter, r *http.Request) {
	var req submitRateRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	err := s.oracle.SubmitRate(req.Caller, req.Asset, req.RateBps, req.Volatility)
	if s.metrics != nil {
		s.metrics.ObserveOracleSubmission(req.Asset, err == nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "accepted"})
}

func (s *Server) handleBatchSubmitRates(w http.ResponseWriter, r *http.Request) {
	var req batchSubmitRatesRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	err := s.oracle.BatchSubmitRates(req.Caller, req.Assets, req.Rates, req.Volatilities)
	if s.metrics != nil {
		for _, asset := range req.Assets {
			s.metrics.ObserveOracleSubmission(asset, err == nil)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "accepted"})
}

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	rateBps, lastUpdated, volatility := s.oracle.GetRate(asset)
	updated := ""
	if !lastUpdated.IsZero() {
		updated = lastUpdated.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, rateResponse{
		Asset:       asset,
		RateBps:     rateBps,
		Volatility:  volatility,
		LastUpdated: updated,
		Fresh:       s.oracle.IsFresh(asset),
	})
}
