// Command server exposes curriculum import, lesson generation and document
// rendering over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"lessonnotes/internal/catalog"
	"lessonnotes/internal/config"
	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/importer"
	"lessonnotes/internal/llm"
	"lessonnotes/internal/notes"
	"lessonnotes/internal/platform/cache"
	"lessonnotes/internal/platform/database"
	"lessonnotes/internal/platform/logger"
	"lessonnotes/internal/render"
	"lessonnotes/internal/store"
)

// deps are the collaborators a Server is built from.
type deps struct {
	log        *logger.Logger
	curriculum store.CurriculumStore
	scheme     store.SchemeStore
	drafts     store.DraftStore
	generator  llm.Generator
	abbr       *render.Abbreviations
	policy     curriculum.MergePolicy
	public     bool
	batchSize  int
	health     []healthCheck
}

func newServer(ctx context.Context, d deps) (*Server, error) {
	cat, err := catalog.New(d.policy)
	if err != nil {
		return nil, err
	}
	existing, err := d.curriculum.ListCurriculum(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}
	if err := cat.Add(existing...); err != nil {
		return nil, err
	}

	renderer := render.New(d.abbr)
	srv := &Server{
		log:        d.log,
		curriculum: d.curriculum,
		scheme:     d.scheme,
		drafts:     d.drafts,
		catalog:    cat,
		renderer:   renderer,
		public:     d.public,
		importer: importer.New(importer.Config{
			Curriculum:  d.curriculum,
			Scheme:      d.scheme,
			Policy:      d.policy,
			Concurrency: d.batchSize,
			Log:         d.log,
		}),
		archives:    newLRUCache(maxArchives, d.log),
		fetchClient: &http.Client{Timeout: 60 * time.Second},
		health:      d.health,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if d.generator != nil {
		srv.notes = notes.New(notes.Config{
			Generator:   d.generator,
			Renderer:    renderer,
			Policy:      d.policy,
			Concurrency: d.batchSize,
			Log:         d.log,
		})
	}
	return srv, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := deps{
		log:       log,
		policy:    curriculum.ParsePolicy(cfg.MergePolicy),
		public:    cfg.ImportPublic,
		batchSize: cfg.Batch.Concurrency,
	}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			log.Fatal("database unavailable", "error", err)
		}
		defer db.Close()
		pg, err := store.NewPostgresStore(db.Pool)
		if err != nil {
			log.Fatal("postgres store", "error", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("migrate", "error", err)
		}
		d.curriculum, d.scheme = pg, pg
		d.health = append(d.health, healthCheck{name: "database", check: db.HealthCheck})
		log.Info("curriculum store: postgres")
	} else {
		mem := store.NewMemoryStore()
		d.curriculum, d.scheme = mem, mem
		log.Info("curriculum store: memory (set LESSONNOTES_DATABASE_URL to persist)")
	}

	switch cfg.Drafts.Backend {
	case "redis":
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			log.Fatal("cache unavailable", "error", err)
		}
		defer c.Close()
		d.drafts = store.NewRedisDraftStore(c.Client, cfg.Drafts.TTL)
		d.health = append(d.health, healthCheck{name: "cache", check: c.HealthCheck})
	default:
		fs, err := store.NewFileDraftStore(cfg.Drafts.Dir)
		if err != nil {
			log.Fatal("draft store", "error", err)
		}
		d.drafts = fs
	}

	d.abbr = render.DefaultAbbreviations()
	if cfg.AbbreviationsFile != "" {
		if d.abbr, err = render.LoadAbbreviations(cfg.AbbreviationsFile); err != nil {
			log.Fatal("abbreviations", "file", cfg.AbbreviationsFile, "error", err)
		}
	}

	if cfg.HasGenerator() {
		d.generator, err = llm.NewGenerator(llm.Options{
			Provider: cfg.OpenAI.Provider,
			APIKey:   cfg.OpenAI.APIKey,
			Model:    cfg.OpenAI.Model,
			BaseURL:  cfg.OpenAI.BaseURL,
			Timeout:  cfg.OpenAI.Timeout,
		})
		if err != nil {
			log.Fatal("generator", "error", err)
		}
		log.Info("lesson generation enabled", "provider", cfg.OpenAI.Provider)
	} else {
		log.Warn("lesson generation disabled: no API key configured")
	}

	srv, err := newServer(ctx, d)
	if err != nil {
		log.Fatal("server setup", "error", err)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("server starting", "addr", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", "error", err)
	}
	log.Info("server stopped")
}
