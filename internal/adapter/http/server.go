// Package http exposes the discovery API over HTTP: venue and
// promotion screens, preference management, admin CRUD, and the
// health/readiness/metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/domain"
	"github.com/plazafinder/mall-radar/internal/prefs"
	"github.com/plazafinder/mall-radar/internal/session"
)

// Discovery serves the venue screens.
type Discovery interface {
	NearbyMalls(ctx context.Context, origin domain.GeoPoint, query domain.RankingQuery) ([]domain.RankedResult[domain.Mall], error)
	MallStores(ctx context.Context, mallID, category, text string) ([]domain.Store, error)
	NearbyPromotions(ctx context.Context, origin domain.GeoPoint, query domain.RankingQuery) ([]domain.RankedResult[domain.Promotion], error)
}

// MallAdmin mutates the mall catalog.
type MallAdmin interface {
	CreateMall(ctx context.Context, m domain.Mall) (domain.Mall, error)
	UpdateMall(ctx context.Context, id string, m domain.Mall) (domain.Mall, error)
	DeleteMall(ctx context.Context, id string) error
}

// PromotionAdmin mutates the promotion catalog.
type PromotionAdmin interface {
	CreatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error)
	DeletePromotion(ctx context.Context, id string) error
}

// ReadinessChecker reports whether the service can serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the discovery API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	discovery  Discovery
	mallAdmin  MallAdmin
	promoAdmin PromotionAdmin
	resolver   session.Resolver

	// Signed-in preferences live in the data service; anonymous ones are
	// held per device in memory.
	userPrefs       prefs.Store
	devicePrefs     prefs.Store
	defaultRadiusKm float64
}

// NewServer creates an HTTP server with all API routes registered.
func NewServer(cfg *config.Config, d Discovery, mallAdmin MallAdmin, promoAdmin PromotionAdmin, resolver session.Resolver, userPrefs, devicePrefs prefs.Store, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:          logger,
		discovery:       d,
		mallAdmin:       mallAdmin,
		promoAdmin:      promoAdmin,
		resolver:        resolver,
		userPrefs:       userPrefs,
		devicePrefs:     devicePrefs,
		defaultRadiusKm: cfg.NotifyDefaultRadiusKm,
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready.CheckReadiness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/malls", s.handleNearbyMalls)
	mux.HandleFunc("GET /v1/malls/{id}/stores", s.handleMallStores)
	mux.HandleFunc("GET /v1/promotions", s.handleNearbyPromotions)

	mux.HandleFunc("GET /v1/preferences", s.withSession(s.handleGetPreferences))
	mux.HandleFunc("PUT /v1/preferences", s.withSession(s.handlePutPreferences))

	mux.HandleFunc("POST /v1/admin/malls", s.requireAdmin(s.handleCreateMall))
	mux.HandleFunc("PATCH /v1/admin/malls/{id}", s.requireAdmin(s.handleUpdateMall))
	mux.HandleFunc("DELETE /v1/admin/malls/{id}", s.requireAdmin(s.handleDeleteMall))
	mux.HandleFunc("POST /v1/admin/promotions", s.requireAdmin(s.handleCreatePromotion))
	mux.HandleFunc("DELETE /v1/admin/promotions/{id}", s.requireAdmin(s.handleDeletePromotion))

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

// withSession resolves the bearer token, if present, and stores the session
// in the request context. Requests without a token pass through anonymous;
// requests with a bad token are rejected.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := session.FromBearer(r.Header.Get("Authorization"))
		if !ok {
			next(w, r)
			return
		}
		sess, err := s.resolver.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			s.logger.Error("session resolve failed", "error", err)
			writeError(w, http.StatusBadGateway, "auth service unavailable")
			return
		}
		next(w, r.WithContext(session.WithSession(r.Context(), sess)))
	}
}

// requireAdmin resolves the session and rejects anyone without the admin role.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !sess.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	})
}

type rankedMall struct {
	domain.Mall
	DistanceKm float64 `json:"distance_km"`
}

type rankedPromotion struct {
	domain.Promotion
	DistanceKm float64 `json:"distance_km"`
}

func (s *Server) handleNearbyMalls(w http.ResponseWriter, r *http.Request) {
	origin, query, err := parseRankingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.discovery.NearbyMalls(r.Context(), origin, query)
	if err != nil {
		s.writeRankError(w, err)
		return
	}

	out := make([]rankedMall, len(results))
	for i, res := range results {
		out[i] = rankedMall{Mall: res.Venue, DistanceKm: res.DistanceKm}
	}
	writeJSON(w, http.StatusOK, map[string]any{"malls": out})
}

func (s *Server) handleMallStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.discovery.MallStores(r.Context(), r.PathValue("id"),
		r.URL.Query().Get("category"), r.URL.Query().Get("q"))
	if err != nil {
		s.logger.Error("mall stores failed", "error", err)
		writeError(w, http.StatusBadGateway, "data service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func (s *Server) handleNearbyPromotions(w http.ResponseWriter, r *http.Request) {
	origin, query, err := parseRankingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.discovery.NearbyPromotions(r.Context(), origin, query)
	if err != nil {
		s.writeRankError(w, err)
		return
	}

	out := make([]rankedPromotion, len(results))
	for i, res := range results {
		out[i] = rankedPromotion{Promotion: res.Venue, DistanceKm: res.DistanceKm}
	}
	writeJSON(w, http.StatusOK, map[string]any{"promotions": out})
}

// prefsStoreFor picks the preference store and owner key for the request:
// the session's user for signed-in callers, the device header otherwise.
func (s *Server) prefsStoreFor(r *http.Request) (prefs.Store, string, bool) {
	if sess, ok := session.FromContext(r.Context()); ok {
		return s.userPrefs, sess.UserID, true
	}
	if device := r.Header.Get("X-Device-ID"); device != "" {
		return s.devicePrefs, device, true
	}
	return nil, "", false
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	store, owner, ok := s.prefsStoreFor(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "authentication or X-Device-ID header required")
		return
	}

	p, err := store.Get(r.Context(), owner)
	if err != nil {
		s.logger.Error("get preferences failed", "error", err)
		writeError(w, http.StatusBadGateway, "data service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	store, owner, ok := s.prefsStoreFor(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "authentication or X-Device-ID header required")
		return
	}

	var p domain.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preferences body")
		return
	}
	if p.LastLocation != nil {
		if err := p.LastLocation.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	p.RadiusKm = config.ClampNotifyRadius(p.RadiusKm, s.defaultRadiusKm)

	if err := store.Put(r.Context(), owner, p); err != nil {
		s.logger.Error("put preferences failed", "error", err)
		writeError(w, http.StatusBadGateway, "data service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateMall(w http.ResponseWriter, r *http.Request) {
	var m domain.Mall
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid mall body")
		return
	}

	created, err := s.mallAdmin.CreateMall(r.Context(), m)
	if err != nil {
		s.writeAdminError(w, "create mall", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMall(w http.ResponseWriter, r *http.Request) {
	var m domain.Mall
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid mall body")
		return
	}

	updated, err := s.mallAdmin.UpdateMall(r.Context(), r.PathValue("id"), m)
	if err != nil {
		s.writeAdminError(w, "update mall", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMall(w http.ResponseWriter, r *http.Request) {
	if err := s.mallAdmin.DeleteMall(r.Context(), r.PathValue("id")); err != nil {
		s.writeAdminError(w, "delete mall", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	var p domain.Promotion
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid promotion body")
		return
	}

	created, err := s.promoAdmin.CreatePromotion(r.Context(), p)
	if err != nil {
		s.writeAdminError(w, "create promotion", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := s.promoAdmin.DeletePromotion(r.Context(), r.PathValue("id")); err != nil {
		s.writeAdminError(w, "delete promotion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeRankError maps ranking failures: a bad origin is the caller's fault,
// everything else is upstream.
func (s *Server) writeRankError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidCoordinate) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("discovery failed", "error", err)
	writeError(w, http.StatusBadGateway, "data service unavailable")
}

func (s *Server) writeAdminError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrInvalidCoordinate) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusBadGateway, "data service unavailable")
}

// parseRankingParams reads the origin and ranking query from the URL.
// lat and lon are required; radius_km, q, and limit are optional.
func parseRankingParams(r *http.Request) (domain.GeoPoint, domain.RankingQuery, error) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return domain.GeoPoint{}, domain.RankingQuery{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return domain.GeoPoint{}, domain.RankingQuery{}, errors.New("lon must be a number")
	}
	origin := domain.GeoPoint{Lat: lat, Lon: lon}

	query := domain.RankingQuery{Text: q.Get("q")}
	if raw := q.Get("radius_km"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			return domain.GeoPoint{}, domain.RankingQuery{}, errors.New("radius_km must be a non-negative number")
		}
		query.RadiusKm = &radius
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return domain.GeoPoint{}, domain.RankingQuery{}, errors.New("limit must be a non-negative integer")
		}
		query.Limit = limit
	}
	return origin, query, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
