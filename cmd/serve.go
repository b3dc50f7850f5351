package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/axialworks/fanquote/internal/config"
	"github.com/axialworks/fanquote/internal/document"
	"github.com/axialworks/fanquote/internal/model"
	"github.com/axialworks/fanquote/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quoting HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env, cfg.Server),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *environment, server config.ServerConfig) http.Handler {
	h := &apiHandler{env: env}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(requestLogger)

	r.Get("/health", h.health)
	r.Get("/fans", h.listFans)
	r.Get("/fans/{id}/components", h.listFanComponents)
	r.Get("/motors", h.listMotors)
	r.Get("/settings", h.listSettings)

	// Calculation endpoints take the rate limiter; reads don't.
	r.Group(func(r chi.Router) {
		if server.RateLimitPerSec > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(server.RateLimitPerSec), server.RateLimitBurst)))
		}
		r.Post("/components/calculate", h.calculateComponent)
		r.Post("/components/summary", h.componentsSummary)
		r.Post("/quotes/calculate", h.calculateQuote)
	})

	r.Post("/quotes", h.saveQuote)
	r.Get("/quotes", h.listQuotes)
	r.Get("/quotes/{id}", h.getQuote)
	r.Get("/quotes/ref/{ref}/revisions", h.quoteRevisions)
	r.Post("/quotes/{id}/status", h.updateQuoteStatus)
	r.Post("/quotes/{id}/reconcile", h.reconcileQuote)
	r.Post("/reconcile", h.reconcileDocument)

	return r
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

type apiHandler struct {
	env *environment
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *apiHandler) listFans(w http.ResponseWriter, r *http.Request) {
	fans, err := h.env.Store.FanConfigurations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fans)
}

func (h *apiHandler) listFanComponents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid fan id")
		return
	}
	if _, err := h.env.Store.FanConfiguration(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	components, err := h.env.Store.ComponentsForFan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, components)
}

func (h *apiHandler) listMotors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MotorFilter{SupplierName: q.Get("supplier")}
	if v := q.Get("poles"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid poles")
			return
		}
		filter.Poles = n
	}
	if v := q.Get("min_kw"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid min_kw")
			return
		}
		filter.MinKW = n
	}
	if v := q.Get("max_kw"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid max_kw")
			return
		}
		filter.MaxKW = n
	}

	motors, err := h.env.Store.Motors(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, motors)
}

func (h *apiHandler) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.env.Store.GlobalSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Name] = s.Value
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *apiHandler) calculateComponent(w http.ResponseWriter, r *http.Request) {
	var req model.ComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.env.Engine.CalculateComponent(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *apiHandler) componentsSummary(w http.ResponseWriter, r *http.Request) {
	var req model.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.env.Engine.ComponentsSummary(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *apiHandler) calculateQuote(w http.ResponseWriter, r *http.Request) {
	var req model.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.env.Engine.CalculateQuote(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type saveQuoteRequest struct {
	QuoteRef string             `json:"quote_ref"`
	Project  document.Project   `json:"project"`
	Request  model.QuoteRequest `json:"request"`
}

// saveQuote calculates the quote server-side and persists the resulting
// document; saving an existing reference appends a new revision.
func (h *apiHandler) saveQuote(w http.ResponseWriter, r *http.Request) {
	var req saveQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuoteRef == "" {
		respondError(w, http.StatusBadRequest, "quote_ref is required")
		return
	}
	req.Project.Reference = req.QuoteRef

	res, err := h.env.Engine.CalculateQuote(r.Context(), req.Request)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := document.Build(req.Request, res, req.Project)
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.env.Store.CreateQuote(r.Context(), &model.SavedQuote{
		QuoteRef:    req.QuoteRef,
		ClientName:  req.Project.Client,
		ProjectName: req.Project.Name,
		Document:    doc,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (h *apiHandler) listQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.QuoteFilter{
		Status:     model.QuoteStatus(q.Get("status")),
		ClientName: q.Get("client"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	quotes, err := h.env.Store.ListQuotes(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quotes)
}

func (h *apiHandler) getQuote(w http.ResponseWriter, r *http.Request) {
	saved, err := h.env.Store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (h *apiHandler) quoteRevisions(w http.ResponseWriter, r *http.Request) {
	revisions, err := h.env.Store.QuoteRevisions(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, revisions)
}

func (h *apiHandler) updateQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.QuoteStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Status {
	case model.QuoteStatusDraft, model.QuoteStatusSubmitted, model.QuoteStatusApproved, model.QuoteStatusRejected:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.env.Store.UpdateQuoteStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(req.Status)})
}

type reconcileResponse struct {
	DerivedTotals document.DerivedTotals `json:"derived_totals"`
	Issues        []document.Issue       `json:"issues"`
}

func (h *apiHandler) reconcileQuote(w http.ResponseWriter, r *http.Request) {
	saved, err := h.env.Store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.reconcile(w, saved.Document)
}

func (h *apiHandler) reconcileDocument(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.reconcile(w, raw)
}

func (h *apiHandler) reconcile(w http.ResponseWriter, raw json.RawMessage) {
	migrated, err := document.Migrate(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "document is not valid JSON")
		return
	}
	derived, issues := document.Reconcile(migrated)
	if issues == nil {
		issues = []document.Issue{}
	}
	respondJSON(w, http.StatusOK, reconcileResponse{DerivedTotals: derived, Issues: issues})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError maps the domain error taxonomy onto HTTP statuses. The engine
// and store never see status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case model.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case model.IsConfiguration(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
