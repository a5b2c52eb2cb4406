package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/NYTimes/gziphandler"
	json "github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/bher20/shipratemanager/internal/api/swagger"
	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/metrics"
	"github.com/bher20/shipratemanager/internal/rates"
	"github.com/bher20/shipratemanager/internal/storage"
	"github.com/bher20/shipratemanager/internal/ui"
	"github.com/bher20/shipratemanager/pkg/fileutil"
	"github.com/bher20/shipratemanager/pkg/shipping"
)

const tableCacheKey = "shipping_costs"

// Server exposes the stored rate table over HTTP.
type Server struct {
	svc     *rates.Service
	store   storage.Storage
	cache   *gocache.Cache
	limiter *rate.Limiter
}

// Options tune caching and the manual refresh limit.
type Options struct {
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	RefreshBurst    int
}

func DefaultOptions() Options {
	return Options{
		CacheTTL:        5 * time.Minute,
		RefreshInterval: time.Minute,
		RefreshBurst:    1,
	}
}

func NewServer(svc *rates.Service, store storage.Storage, opts Options) *Server {
	return &Server{
		svc:     svc,
		store:   store,
		cache:   gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		limiter: rate.NewLimiter(rate.Every(opts.RefreshInterval), opts.RefreshBurst),
	}
}

// Handler is NewMux with gzip response compression.
func (s *Server) Handler() http.Handler {
	return gziphandler.GzipHandler(s.NewMux())
}

// NewMux wires the API, metrics, health and documentation endpoints.
func (s *Server) NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			logger.Component("api").Warn().Err(err).Msg("readyz: db ping failed")
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	mux.Handle("GET /shipping-costs", instrument("/shipping-costs", s.handleList))
	mux.Handle("GET /shipping-costs/{desi}", instrument("/shipping-costs/{desi}", s.handleDesi))
	mux.Handle("GET /carriers/{carrier}", instrument("/carriers/{carrier}", s.handleCarrier))
	mux.Handle("GET /snapshot", instrument("/snapshot", s.handleSnapshot))
	mux.Handle("GET /document", instrument("/document", s.handleDocument))
	mux.Handle("POST /refresh", instrument("/refresh", s.handleRefresh))

	mux.Handle("/docs/", http.StripPrefix("/docs", swagger.Handler()))
	mux.Handle("/ui/", http.StripPrefix("/ui/", ui.Handler()))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})

	return mux
}

type rowResponse struct {
	Desi  int                `json:"desi"`
	Costs map[string]float64 `json:"costs"`
}

func toRowResponse(r shipping.Row) rowResponse {
	costs := make(map[string]float64, shipping.NumCarriers)
	for i, key := range shipping.CarrierKeys() {
		costs[key] = r.Costs[i]
	}
	return rowResponse{Desi: r.Desi, Costs: costs}
}

// table returns the stored rows, served from cache between refreshes.
func (s *Server) table(r *http.Request) (shipping.Table, error) {
	if v, ok := s.cache.Get(tableCacheKey); ok {
		return v.(shipping.Table), nil
	}
	t, err := s.store.ListShippingCosts(r.Context())
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(tableCacheKey, t)
	return t, nil
}

// handleList returns every stored row.
// @Summary List shipping costs
// @Description Every stored row ordered by desi
// @Tags shipping
// @Produce json
// @Success 200 {object} map[string][]rowResponse
// @Failure 500 {object} map[string]string
// @Router /shipping-costs [get]
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	t, err := s.table(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rows := make([]rowResponse, 0, len(t))
	for _, row := range t {
		rows = append(rows, toRowResponse(row))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

// @Summary Get costs for one desi
// @Tags shipping
// @Produce json
// @Param desi path int true "Desi"
// @Success 200 {object} rowResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /shipping-costs/{desi} [get]
func (s *Server) handleDesi(w http.ResponseWriter, r *http.Request) {
	desi, err := strconv.Atoi(r.PathValue("desi"))
	if err != nil || desi < 0 {
		writeError(w, http.StatusBadRequest, errors.New("desi must be a non-negative integer"))
		return
	}
	row, err := s.store.GetShippingCost(r.Context(), desi)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, errors.New("no shipping cost for desi"))
		return
	}
	writeJSON(w, http.StatusOK, toRowResponse(*row))
}

// handleCarrier returns one carrier's costs, index-aligned with desi.
// @Summary Get one carrier's cost column
// @Tags shipping
// @Produce json
// @Param carrier path string true "Carrier key"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /carriers/{carrier} [get]
func (s *Server) handleCarrier(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("carrier")
	idx, err := shipping.CarrierIndex(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	t, err := s.table(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	col, _ := t.Column(key)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"carrier": key,
		"name":    shipping.Carriers()[idx].Name,
		"costs":   col,
	})
}

// @Summary Download the JSON snapshot
// @Tags artifacts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /snapshot [get]
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, s.svc.Config().SnapshotPath, "application/json")
}

// @Summary Download the local rate document
// @Tags artifacts
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /document [get]
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, s.svc.Config().DocumentPath, "application/pdf")
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, contentType string) {
	ok, err := fileutil.Exists(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("not available yet"))
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, path)
}

// handleRefresh runs one refresh, limited to one call per RefreshInterval.
// @Summary Refresh the rate table
// @Description Skips when the remote document is unchanged, otherwise downloads, extracts and persists
// @Tags refresh
// @Produce json
// @Success 200 {object} rates.Result
// @Failure 429 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, errors.New("refresh rate limit exceeded"))
		return
	}
	res, err := s.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if res.Outcome == rates.OutcomeRefreshed {
		s.cache.Delete(tableCacheKey)
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Component("api").Error().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Component("api").Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count, latency and error codes under path.
func instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		metrics.RequestsTotal.WithLabelValues(path).Inc()
		h(rec, r)
		metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
		if rec.status >= 400 {
			metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
		}
	})
}
