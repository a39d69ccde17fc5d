package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxDecodeBody bounds a /decode request; ISD lines rarely exceed a few
// kilobytes.
const maxDecodeBody = 64 << 10

// Server exposes health, readiness, metrics and line decoding HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /decode routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /decode", s.handleDecode)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// lineError reports one line of a /decode request that could not be decoded.
type lineError struct {
	Line   int    `json:"line"`
	Field  string `json:"field,omitempty"`
	Column int    `json:"column,omitempty"`
	Error  string `json:"error"`
}

type decodeResponse struct {
	Rows   []domain.Row `json:"rows"`
	Errors []lineError  `json:"errors,omitempty"`
}

// handleDecode decodes one ISD line per request body line. Malformed lines
// are reported in errors and do not stop the remaining lines; the status is
// 422 only when no line decodes. Blank lines are ignored.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDecodeBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return
	}

	resp := decodeResponse{Rows: []domain.Row{}}
	for i, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		obs, err := domain.DecodeObservation(line)
		if err != nil {
			err = domain.LocateError(err, "", i+1)
			s.logger.Debug("decode request line rejected", "error", err)
			le := lineError{Line: i + 1, Error: err.Error()}
			var mre *domain.MalformedRecordError
			if errors.As(err, &mre) {
				le.Field, le.Column = mre.Field, mre.Column
			}
			resp.Errors = append(resp.Errors, le)
			continue
		}
		resp.Rows = append(resp.Rows, domain.EnrichObservation(obs).Row())
	}

	status := http.StatusOK
	if len(resp.Rows) == 0 {
		status = http.StatusUnprocessableEntity
		if len(resp.Errors) == 0 {
			resp.Errors = append(resp.Errors, lineError{Error: "no ISD lines in request body"})
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
