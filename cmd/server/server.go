package main

import (
	"container/list"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"lessonnotes/internal/archive"
	"lessonnotes/internal/catalog"
	"lessonnotes/internal/importer"
	"lessonnotes/internal/notes"
	"lessonnotes/internal/platform/logger"
	"lessonnotes/internal/render"
	"lessonnotes/internal/store"
)

const (
	maxUploadBytes = 32 << 20
	maxArchives    = 20
)

// healthCheck reports whether one backing service is reachable.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// Server holds all shared state.
type Server struct {
	log        *logger.Logger
	importer   *importer.Importer
	curriculum store.CurriculumStore
	scheme     store.SchemeStore
	drafts     store.DraftStore
	catalog    *catalog.Catalog
	notes      *notes.Service
	renderer   *render.Renderer
	public     bool

	// archives keeps recent week archives for download by batch ID.
	archives *lruCache

	fetchClient *http.Client
	health      []healthCheck
	upgrader    websocket.Upgrader
}

// lruCache is a thread-safe LRU cache of built archives.
type lruCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	log     *logger.Logger
}

type lruEntry struct {
	key   string
	value *archive.Result
}

func newLRUCache(maxSize int, log *logger.Logger) *lruCache {
	return &lruCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		log:     log,
	}
}

// get returns the cached archive and true if found, promoting it to front.
func (c *lruCache) get(key string) (*archive.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*lruEntry).value, true
	}
	return nil, false
}

// put adds or updates an entry. If the cache is full, the LRU entry is evicted.
func (c *lruCache) put(key string, value *archive.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*lruEntry).value = value
		return
	}
	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
			c.log.Debug("archive evicted", "batch_id", oldest.Value.(*lruEntry).key)
		}
	}
	c.items[key] = c.order.PushFront(&lruEntry{key: key, value: value})
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/extract", s.handleExtract)

		r.Route("/curriculum", func(r chi.Router) {
			r.Get("/", s.handleListCurriculum)
			r.Get("/search", s.handleSearchCurriculum)
			r.Post("/import", s.handleImportCurriculum)
		})

		r.Route("/scheme", func(r chi.Router) {
			r.Get("/", s.handleListScheme)
			r.Post("/import", s.handleImportScheme)
			r.Get("/export", s.handleExportScheme)
			r.Get("/template", s.handleSchemeTemplate)
		})

		r.Route("/lessons", func(r chi.Router) {
			r.Post("/parse", s.handleParseLessons)
			r.Post("/render", s.handleRenderLessons)
			r.Post("/generate", s.handleGenerateLessons)
		})

		r.Route("/weeks", func(r chi.Router) {
			r.Post("/generate", s.handleGenerateWeek)
			r.Get("/ws", s.handleGenerateWeekWS)
			r.Get("/{batchID}/archive", s.handleWeekArchive)
		})

		r.Route("/drafts/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDraft)
			r.Put("/", s.handlePutDraft)
			r.Delete("/", s.handleDeleteDraft)
		})
	})
	return r
}

// ========== Middleware ==========

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Batch-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ========== Helpers ==========

func jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func download(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	code := http.StatusOK
	for _, h := range s.health {
		if err := h.check(r.Context()); err != nil {
			status[h.name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[h.name] = "ok"
	}
	resp := map[string]interface{}{
		"status":     "ok",
		"generator":  s.notes != nil,
		"curriculum": s.catalog.Len(),
		"services":   status,
	}
	if code != http.StatusOK {
		resp["status"] = "degraded"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}
	jsonResp(w, resp)
}
