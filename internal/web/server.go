// Package web serves the portfolio over HTTP: a JSON API, an SSE stream of
// refresh reports and the single-page dashboard.
package web

import (
	"context"
	"crypto/tls"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
	"github.com/vadiminshakov/hodlbook/internal/storage/transactions"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	heartbeatInterval = 20 * time.Second
	refreshTimeout    = 2 * time.Minute
	shutdownTimeout   = 5 * time.Second
	maxBodyBytes      = 1 << 16
)

//go:embed static
var staticFiles embed.FS

// Portfolio is what the server needs from the tracker.
type Portfolio interface {
	Refresh(ctx context.Context) (*tracker.Report, error)
	Latest() *tracker.Report
	Subscribe() (<-chan *tracker.Report, func())
	CoinChart(ctx context.Context, asset string, days int) (tracker.CoinChart, error)
	Transactions() ([]domain.Transaction, error)
	AddTransaction(tx domain.Transaction) error
	DeleteTransaction(id string) error
	ClearTransactions() error
}

// Server exposes HTTP endpoints serving the dashboard, the API and an SSE stream.
type Server struct {
	addr      string
	portfolio Portfolio
	l         *zap.Logger
	router    *chi.Mux
	// refreshCtx parent of refreshes triggered by mutations
	refreshCtx context.Context
}

// NewServer creates a new web server instance.
func NewServer(l *zap.Logger, addr string, portfolio Portfolio) *Server {
	s := &Server{
		addr:       addr,
		portfolio:  portfolio,
		l:          l.With(zap.String("component", "web")),
		router:     chi.NewRouter(),
		refreshCtx: context.Background(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))
			r.Get("/portfolio", s.handlePortfolio)
			r.Get("/history", s.handleHistory)
			r.Get("/coins/{asset}/chart", s.handleCoinChart)

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleListTransactions)
				r.Post("/", s.handleAddTransaction)
				r.Delete("/", s.handleClearTransactions)
				r.Delete("/{id}", s.handleDeleteTransaction)
			})
		})

		// SSE must not be buffered by the compressor
		r.Get("/stream", s.handleStream)
	})

	static, _ := fs.Sub(staticFiles, "static")
	s.router.With(middleware.Compress(5)).Handle("/*", http.FileServer(http.FS(static)))
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.refreshCtx = ctx
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("starting HTTP server", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}
	s.refreshCtx = ctx

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Warn("http (acme) server shutdown error", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Warn("https server shutdown error", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("http (acme) server error", zap.Error(err))
		}
	}()

	s.l.Info("starting HTTPS server", zap.String("addr", s.addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.l.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type portfolioResponse struct {
	Generation  uint64                          `json:"generation"`
	RefreshedAt time.Time                       `json:"refreshedAt"`
	Portfolio   domain.ValuedPortfolio          `json:"portfolio"`
	Positions   map[string]domain.AssetPosition `json:"positions"`
	Warnings    []string                        `json:"warnings,omitempty"`
}

type historyResponse struct {
	Generation uint64                `json:"generation"`
	History    []domain.HistoryPoint `json:"history"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	report, err := s.latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolioResponse{
		Generation:  report.Generation,
		RefreshedAt: report.RefreshedAt,
		Portfolio:   report.Portfolio,
		Positions:   report.Snapshot.Positions,
		Warnings:    report.Warnings,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	report, err := s.latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	history := report.History
	if history == nil {
		history = []domain.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Generation: report.Generation, History: history})
}

// latest returns the published report, refreshing once if there is none yet.
// When that refresh is superseded it waits for the newer one to publish.
func (s *Server) latest(ctx context.Context) (*tracker.Report, error) {
	if report := s.portfolio.Latest(); report != nil {
		return report, nil
	}

	reports, unsubscribe := s.portfolio.Subscribe()
	defer unsubscribe()

	report, err := s.portfolio.Refresh(ctx)
	if !errors.Is(err, tracker.ErrSuperseded) {
		return report, err
	}
	if latest := s.portfolio.Latest(); latest != nil {
		return latest, nil
	}

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	select {
	case report, ok := <-reports:
		if !ok {
			return nil, err
		}
		return report, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "wait for refresh")
	}
}

func (s *Server) handleCoinChart(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.Errorf("invalid days %q", raw))
			return
		}
		days = n
	}

	chart, err := s.portfolio.CoinChart(r.Context(), chi.URLParam(r, "asset"), days)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyAsset) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.portfolio.Transactions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

type addTransactionRequest struct {
	Asset     string  `json:"asset"`
	Action    string  `json:"action"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Date      string  `json:"date"`
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return
	}

	action, err := domain.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var date domain.Date
	if strings.TrimSpace(req.Date) != "" {
		if date, err = domain.ParseDate(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	tx, err := domain.NewTransaction(req.Asset, action, req.Quantity, req.UnitPrice, date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.portfolio.AddTransaction(tx); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.refreshAsync()
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.portfolio.DeleteTransaction(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, transactions.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.refreshAsync()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	if err := s.portfolio.ClearTransactions(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.refreshAsync()
	w.WriteHeader(http.StatusNoContent)
}

// refreshAsync recomputes the portfolio after a mutation; subscribers get
// the result over the stream.
func (s *Server) refreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(s.refreshCtx, refreshTimeout)
		defer cancel()
		if _, err := s.portfolio.Refresh(ctx); err != nil && !errors.Is(err, tracker.ErrSuperseded) {
			s.l.Warn("refresh after mutation failed", zap.Error(err))
		}
	}()
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	reports, unsubscribe := s.portfolio.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	lastID := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	send := func(report *tracker.Report) error {
		payload, err := json.Marshal(report)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("id: " + reportEventID(report).String() + "\nevent: report\ndata: ")); err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		lastID = reportEventID(report)
		return nil
	}

	switch latest := s.portfolio.Latest(); {
	case latest == nil:
		_, _ = w.Write([]byte("event: no_data\ndata: {}\n\n"))
		flusher.Flush()
	case lastID.Precedes(latest):
		if err := send(latest); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case report, ok := <-reports:
			if !ok {
				return
			}
			if !lastID.Precedes(report) {
				continue
			}
			if err := send(report); err != nil {
				s.l.Debug("stream write failed", zap.Error(err))
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
