// Package http defines the JSON response shapes the operator HTTP surface
// (C17, §6 "Operator HTTP surface") returns.
package http

import "time"

// HealthResponse is the GET /healthz body: process liveness plus
// downstream reachability.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp time.Time                 `json:"timestamp"`
	Database  DependencyHealth          `json:"database"`
	Providers map[string]ProviderHealth `json:"providers"`
}

// DependencyHealth reports one downstream dependency's reachability.
type DependencyHealth struct {
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// ProviderHealth reports one source adapter's circuit state.
type ProviderHealth struct {
	Name         string  `json:"name"`
	CircuitState string  `json:"circuit_state"`
	ErrorRate    float64 `json:"error_rate"`
}

// ScanRequestResult is the POST /scan/{symbol} response body.
type ScanRequestResult struct {
	Symbol      string    `json:"symbol"`
	Accepted    bool      `json:"accepted"`
	SignalCount int       `json:"signal_count,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorResponse is the shared error-body shape for 4xx/5xx responses.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
