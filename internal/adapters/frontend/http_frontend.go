package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mikey/url-verifier/internal/core"
	"github.com/mikey/url-verifier/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-Id"
	statusHeader    = "X-Verification-Status"
	maxLoggedURL    = 256
)

// VerifyRequest is the payload accepted by POST /api/v1/verify
type VerifyRequest struct {
	URL string `json:"url"`
}

// HTTPFrontend exposes the verification service as a JSON API
type HTTPFrontend struct {
	service        *core.VerificationService
	textProcessor  *utils.TextProcessor
	logger         *zap.Logger
	listenAddress  string
	maxURLLength   int
	requestTimeout time.Duration
	allowedOrigins []string
	limiter        *rate.Limiter
	server         *http.Server
}

// NewHTTPFrontend creates a new HTTP frontend. A nil limiter disables request rate limiting.
func NewHTTPFrontend(
	service *core.VerificationService,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	listenAddress string,
	maxURLLength int,
	requestTimeout time.Duration,
	allowedOrigins []string,
	limiter *rate.Limiter,
) *HTTPFrontend {
	return &HTTPFrontend{
		service:        service,
		textProcessor:  textProcessor,
		logger:         logger,
		listenAddress:  listenAddress,
		maxURLLength:   maxURLLength,
		requestTimeout: requestTimeout,
		allowedOrigins: allowedOrigins,
		limiter:        limiter,
	}
}

// Router builds the request router
func (f *HTTPFrontend) Router() *mux.Router {
	router := mux.NewRouter()

	router.Use(f.requestIDMiddleware)
	router.Use(f.loggingMiddleware)
	router.Use(f.corsMiddleware)

	router.HandleFunc("/ping", f.pingHandler).Methods(http.MethodGet, http.MethodOptions)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(f.rateLimitMiddleware)
	apiV1.HandleFunc("/verify", f.verifyHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/verifications", f.cachedHandler).Methods(http.MethodGet, http.MethodOptions)

	return router
}

// Start starts listening for HTTP requests
func (f *HTTPFrontend) Start() error {
	listener, err := net.Listen("tcp", f.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddress, err)
	}

	f.server = &http.Server{
		Handler:           f.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	f.logger.Info("Starting HTTP frontend", zap.String("address", listener.Addr().String()))

	go func() {
		if err := f.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the HTTP server down
func (f *HTTPFrontend) Stop() error {
	if f.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f.logger.Info("Stopping HTTP frontend")
	return f.server.Shutdown(ctx)
}

// ProcessURL validates and verifies a single URL
func (f *HTTPFrontend) ProcessURL(ctx context.Context, rawURL string) (*core.VerificationRecord, error) {
	if err := f.textProcessor.ValidateInput(rawURL, f.maxURLLength); err != nil {
		return nil, err
	}

	if f.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.requestTimeout)
		defer cancel()
	}

	return f.service.Verify(ctx, rawURL), nil
}

func (f *HTTPFrontend) pingHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (f *HTTPFrontend) verifyHandler(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if f.maxURLLength > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(f.maxURLLength)+4096)
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	record, err := f.ProcessURL(r.Context(), req.URL)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.logger.Debug("Verified URL",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("url", f.textProcessor.Display(req.URL, maxLoggedURL)),
		zap.String("risk_level", string(record.RiskLevel)),
		zap.Bool("is_safe", record.IsSafe))

	w.Header().Set(statusHeader, string(core.StatusOf(record)))
	respondWithJSON(w, http.StatusOK, record)
}

func (f *HTTPFrontend) cachedHandler(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := f.textProcessor.ValidateInput(rawURL, f.maxURLLength); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := f.service.Cached(r.Context(), rawURL)
	if errors.Is(err, core.ErrCacheMiss) {
		respondWithError(w, http.StatusNotFound, "No verification record for URL")
		return
	}
	if err != nil {
		f.logger.Error("Failed to read verification cache",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "Verification cache unavailable")
		return
	}

	w.Header().Set(statusHeader, string(core.StatusOf(record)))
	respondWithJSON(w, http.StatusOK, record)
}

func (f *HTTPFrontend) originAllowed(origin string) (string, bool) {
	for _, allowed := range f.allowedOrigins {
		if allowed == "*" {
			return "*", true
		}
		if strings.EqualFold(allowed, origin) {
			return origin, true
		}
	}
	return "", false
}
