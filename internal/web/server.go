// Package web exposes the engine's account snapshots to the presentation
// layer over HTTP: a JSON endpoint for the latest state and an SSE stream of
// snapshot records.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/acme/autocert"

	"github.com/lendmon/lendmon/internal/domain"
)

const snapshotPollInterval = 2 * time.Second

type snapshotReader interface {
	SnapshotsAfter(index uint64) ([]domain.StoredSnapshot, error)
}

type actionChecker interface {
	Predict(ctx context.Context, action domain.Action, symbol string, quantity decimal.Decimal) (domain.HealthFactor, error)
	CheckAction(ctx context.Context, action domain.Action, symbol string, quantity decimal.Decimal) error
}

type txTracker interface {
	Track(ref string) domain.TxStatus
	Status(ref string) (domain.TxStatus, error)
	Await(ctx context.Context, ref string, timeout time.Duration) (domain.TxStatus, error)
}

// Server exposes HTTP endpoints serving the snapshot SSE stream, the
// pre-flight action check and the transaction tracker.
type Server struct {
	Addr   string
	Store  snapshotReader
	Engine actionChecker

	// Tracker and ConfirmTimeout enable the /tx endpoints; a nil Tracker
	// disables them.
	Tracker        txTracker
	ConfirmTimeout time.Duration
}

// NewServer creates a new web server instance. engine may be nil, disabling
// the predict endpoint.
func NewServer(addr string, store snapshotReader, engine actionChecker) *Server {
	return &Server{Addr: addr, Store: store, Engine: engine}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via
// ACME, plus an HTTP server on port 80 for HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		_ = httpsSrv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("acme http server: %v", err)
		}
	}()

	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/account/latest", s.handleLatest)
	mux.HandleFunc("/account/stream", s.handleSnapshotStream)
	mux.HandleFunc("/account/predict", s.handlePredict)
	mux.HandleFunc("/tx/track", s.handleTxTrack)
	mux.HandleFunc("/tx/status", s.handleTxStatus)
	return mux
}

type txStatusResponse struct {
	Ref         string `json:"ref"`
	State       string `json:"state"`
	BlockNumber uint64 `json:"block_number,omitempty"`
}

func newTxStatusResponse(status domain.TxStatus) txStatusResponse {
	return txStatusResponse{
		Ref:         status.Ref,
		State:       status.State.String(),
		BlockNumber: status.BlockNumber,
	}
}

// handleTxTrack registers a submitted transaction and awaits its receipt in
// the background: GET /tx/track?ref=0x...
// Confirmation and timeout transitions are published on the wallet event bus.
func (s *Server) handleTxTrack(w http.ResponseWriter, r *http.Request) {
	if s.Tracker == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "transaction tracker not available")
		return
	}

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Error(w, "ref is required", http.StatusBadRequest)
		return
	}

	status := s.Tracker.Track(ref)

	timeout := s.ConfirmTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	go func() {
		if _, err := s.Tracker.Await(context.Background(), ref, timeout); err != nil {
			log.Printf("awaiting transaction %s: %v", ref, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newTxStatusResponse(status))
}

// handleTxStatus returns the last known status of a tracked transaction:
// GET /tx/status?ref=0x...
func (s *Server) handleTxStatus(w http.ResponseWriter, r *http.Request) {
	if s.Tracker == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "transaction tracker not available")
		return
	}

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Error(w, "ref is required", http.StatusBadRequest)
		return
	}

	status, err := s.Tracker.Status(ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newTxStatusResponse(status))
}

// handlePredict runs the pre-flight check for a hypothetical action:
// GET /account/predict?action=borrow&symbol=DAI&quantity=5000
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.Engine == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "risk engine not available")
		return
	}

	action, ok := domain.ParseAction(r.URL.Query().Get("action"))
	if !ok {
		http.Error(w, "action must be one of supply, withdraw, borrow, repay", http.StatusBadRequest)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	quantity, err := decimal.NewFromString(r.URL.Query().Get("quantity"))
	if err != nil {
		http.Error(w, "quantity must be a decimal", http.StatusBadRequest)
		return
	}

	predicted, err := s.Engine.Predict(r.Context(), action, symbol, quantity)
	if err != nil {
		http.Error(w, err.Error(), predictStatus(err))
		return
	}

	resp := struct {
		Action       string `json:"action"`
		Symbol       string `json:"symbol"`
		Quantity     string `json:"quantity"`
		HealthFactor string `json:"health_factor"`
		RiskClass    string `json:"risk_class"`
		Allowed      bool   `json:"allowed"`
		Reason       string `json:"reason,omitempty"`
	}{
		Action:       action.String(),
		Symbol:       symbol,
		Quantity:     quantity.String(),
		HealthFactor: predicted.String(),
		RiskClass:    domain.Classify(predicted).String(),
		Allowed:      true,
	}
	if err := s.Engine.CheckAction(r.Context(), action, symbol, quantity); err != nil {
		resp.Allowed = false
		resp.Reason = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func predictStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}

	records, err := s.Store.SnapshotsAfter(0)
	if err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "no snapshots yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records[len(records)-1].Record)
}

func (s *Server) handleSnapshotStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// load the backlog before committing to the event-stream response so a
	// broken store still produces a plain error status
	lastIndex := uint64(0)
	initial, err := s.Store.SnapshotsAfter(lastIndex)
	if err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		log.Printf("snapshot stream initial load: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	sendSnapshots := func(records []domain.StoredSnapshot) error {
		for _, record := range records {
			payload, err := json.Marshal(record.Record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: account\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendSnapshots(initial); err != nil {
		log.Printf("snapshot stream initial send: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			records, err := s.Store.SnapshotsAfter(lastIndex)
			if err != nil {
				log.Printf("snapshot stream poll err: %v", err)
				continue
			}
			if err := sendSnapshots(records); err != nil {
				log.Printf("snapshot stream poll send: %v", err)
			}
		}
	}
}
