// Command ingest imports every curriculum or scheme file in a directory,
// prints the import report and merged records as JSON, and optionally
// writes them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"lessonnotes/internal/config"
	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/extractor"
	"lessonnotes/internal/importer"
	"lessonnotes/internal/mapper"
	"lessonnotes/internal/platform/database"
	"lessonnotes/internal/platform/logger"
	"lessonnotes/internal/store"
)

type options struct {
	dir     string
	kind    string
	subject string
	policy  string
	public  bool
	persist bool
}

type output struct {
	Report  *importer.Report          `json:"report"`
	Files   []*importer.Report        `json:"files,omitempty"`
	Records []curriculum.StoredRecord `json:"records,omitempty"`
	Scheme  []curriculum.SchemeItem   `json:"scheme,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.dir, "dir", "corpus", "directory of files to import")
	flag.StringVar(&opts.kind, "kind", "curriculum", `what the files hold: "curriculum" or "scheme"`)
	flag.StringVar(&opts.subject, "subject", "", "subject for files without a subject column")
	flag.StringVar(&opts.policy, "policy", cfg.MergePolicy, `merge policy: "curriculum" or "indicator-fidelity"`)
	flag.BoolVar(&opts.public, "public", cfg.ImportPublic, "mark imported records as public")
	flag.BoolVar(&opts.persist, "persist", false, "write to LESSONNOTES_DATABASE_URL instead of memory")
	flag.Parse()

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), cfg, opts, log, os.Stdout); err != nil {
		log.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log *logger.Logger, w io.Writer) error {
	files, err := readDir(opts.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported files in %s", opts.dir)
	}

	var (
		curStore    store.CurriculumStore
		schemeStore store.SchemeStore
	)
	if opts.persist {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer db.Close()
		pg, err := store.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		curStore, schemeStore = pg, pg
	} else {
		mem := store.NewMemoryStore()
		curStore, schemeStore = mem, mem
	}

	im := importer.New(importer.Config{
		Curriculum:  curStore,
		Scheme:      schemeStore,
		Policy:      curriculum.ParsePolicy(opts.policy),
		Concurrency: cfg.Batch.Concurrency,
		Log:         log,
	})

	var out output
	switch opts.kind {
	case "curriculum":
		total, perFile, err := im.ImportCurriculumFiles(ctx, files, mapper.Options{Subject: opts.subject, IsPublic: opts.public})
		if err != nil {
			return err
		}
		out.Report, out.Files = total, perFile
		records, err := curStore.ListCurriculum(ctx, store.Filter{})
		if err != nil {
			return err
		}
		for _, r := range records {
			out.Records = append(out.Records, r.Row())
		}
	case "scheme":
		total := &importer.Report{}
		for _, f := range files {
			rep, err := im.ImportScheme(ctx, f)
			if rep == nil {
				return err
			}
			if err != nil {
				total.Failed = append(total.Failed, f.Name)
			}
			total.Created += rep.Created
			total.Merged += rep.Merged
			total.Unchanged += rep.Unchanged
			out.Files = append(out.Files, rep)
		}
		total.Message = total.Summary()
		out.Report = total
		if out.Scheme, err = schemeStore.ListScheme(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown kind %q", opts.kind)
	}

	log.Info("ingest complete", "files", len(files), "summary", out.Report.Message)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// readDir loads every supported file directly under dir in name order.
func readDir(dir string) ([]importer.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var files []importer.File
	for _, e := range entries {
		if e.IsDir() || !extractor.Supported(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		files = append(files, importer.File{Name: e.Name(), Data: data})
	}
	return files, nil
}
