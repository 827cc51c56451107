// Package httpapi implements the operator HTTP surface (C17, §6):
// GET /healthz, GET /metrics, POST /scan/{symbol}. Not a public API — no
// auth layer, matching the Non-goals.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	httpcontracts "github.com/sawpanic/marketintel/internal/http"
	"github.com/sawpanic/marketintel/internal/persistence"
)

// Scanner is the out-of-band manual scan trigger the operator surface
// calls into; satisfied by the scheduler.
type Scanner interface {
	ScanSymbol(ctx context.Context, symbol string) (int, error)
}

// ProviderStatus reports one adapter's circuit-breaker state for /healthz.
type ProviderStatus interface {
	Name() string
	CircuitState() string
	ErrorRate() float64
}

// Server wraps the operator HTTP surface's dependencies.
type Server struct {
	Repo      persistence.RepositoryHealth
	Scanner   Scanner
	Providers []ProviderStatus
	router    *mux.Router
}

func New(repo persistence.RepositoryHealth, scanner Scanner, providers []ProviderStatus) *Server {
	s := &Server{Repo: repo, Scanner: scanner, Providers: providers, router: mux.NewRouter()}
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/scan/{symbol}", s.handleScan).Methods(http.MethodPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbHealth := httpcontracts.DependencyHealth{Reachable: true}
	status := "healthy"
	if s.Repo != nil {
		if err := s.Repo.Ping(ctx); err != nil {
			dbHealth = httpcontracts.DependencyHealth{Reachable: false, Error: err.Error()}
			status = "degraded"
		}
	}

	providers := make(map[string]httpcontracts.ProviderHealth, len(s.Providers))
	for _, p := range s.Providers {
		providers[p.Name()] = httpcontracts.ProviderHealth{
			Name:         p.Name(),
			CircuitState: p.CircuitState(),
			ErrorRate:    p.ErrorRate(),
		}
	}

	resp := httpcontracts.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Database:  dbHealth,
		Providers: providers,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if s.Scanner == nil {
		writeJSON(w, http.StatusServiceUnavailable, httpcontracts.ErrorResponse{
			Error: "scanner not wired", Timestamp: time.Now(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	count, err := s.Scanner.ScanSymbol(ctx, symbol)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("httpapi: manual scan failed")
		writeJSON(w, http.StatusOK, httpcontracts.ScanRequestResult{
			Symbol: symbol, Accepted: false, Error: err.Error(), Timestamp: time.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, httpcontracts.ScanRequestResult{
		Symbol: symbol, Accepted: true, SignalCount: count, Timestamp: time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("httpapi: encode response failed")
	}
}
