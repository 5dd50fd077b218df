package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/assettree/pkg/debug"
	"github.com/vanderheijden86/assettree/pkg/loader"
	"github.com/vanderheijden86/assettree/pkg/model"
)

// Options configures a Loader.
type Options struct {
	DataDir  string
	Database string
	// WarningHandler receives skipped-record and normalisation warnings.
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)
}

// Result is one completed load.
type Result struct {
	Dataset model.Dataset
	Source  DataSource
}

// Loader loads company datasets through the best available source.
// Concurrent loads of the same company share a single read.
type Loader struct {
	opts  Options
	group singleflight.Group
	warn  func(string)
}

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}
	var mu sync.Mutex
	return &Loader{
		opts: opts,
		warn: func(msg string) {
			mu.Lock()
			defer mu.Unlock()
			warn(msg)
		},
	}
}

// Load discovers the sources for companyID, picks the best one and reads it.
// The shared read is not tied to any one caller's context: a caller whose
// ctx ends gets ctx.Err() while the others keep waiting for the result.
func (l *Loader) Load(ctx context.Context, companyID string) (Result, error) {
	readCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(companyID, func() (any, error) {
		return l.load(readCtx, companyID)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		debug.LogIf(res.Shared, "load of %s shared with a concurrent caller", companyID)
		return res.Val.(Result), nil
	}
}

func (l *Loader) load(ctx context.Context, companyID string) (Result, error) {
	defer debug.LogEnterExit("datasource.load " + companyID)()

	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                l.opts.DataDir,
		Database:               l.opts.Database,
		CompanyID:              companyID,
		ValidateAfterDiscovery: true,
		Logger:                 func(msg string) { debug.Log("%s", msg) },
	})
	if err != nil {
		return Result{}, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return Result{}, fmt.Errorf("company %s: %w", companyID, err)
	}

	ds, err := LoadFromSource(ctx, best, companyID, l.warn)
	if err != nil {
		return Result{}, err
	}
	return Result{Dataset: ds, Source: best}, nil
}

// Companies lists the companies known to the JSON companies file and the
// database, in that order, without duplicates.
func (l *Loader) Companies(ctx context.Context) ([]model.Company, error) {
	var (
		out  []model.Company
		seen = make(map[string]bool)
		errs []error
	)
	add := func(cs []model.Company) {
		for _, c := range cs {
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}

	if l.opts.DataDir != "" {
		cs, err := loader.LoadCompanies(l.opts.DataDir, loader.ParseOptions{WarningHandler: l.warn})
		if err != nil && !errors.Is(err, loader.ErrNotFound) {
			errs = append(errs, err)
		}
		add(cs)
	}

	dbPath := DiscoveryOptions{DataDir: l.opts.DataDir, Database: l.opts.Database}.databasePath()
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			reader, err := NewSQLiteReader(DataSource{Type: SourceTypeSQLite, Path: dbPath})
			if err != nil {
				errs = append(errs, err)
			} else {
				cs, err := reader.LoadCompanies(ctx)
				reader.Close()
				if err != nil {
					errs = append(errs, err)
				}
				add(cs)
			}
		}
	}

	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		l.warn(fmt.Sprintf("listing companies: %v", err))
	}
	return out, nil
}

// LoadFromSource reads companyID from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(ctx context.Context, source DataSource, companyID string, warn func(string)) (model.Dataset, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return model.Dataset{}, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadDataset(ctx, companyID, warn)

	case SourceTypeJSONDir:
		return loader.LoadDataset(ctx, filepath.Dir(source.Path), companyID, loader.ParseOptions{WarningHandler: warn})

	default:
		return model.Dataset{}, fmt.Errorf("unknown source type: %s", source.Type)
	}
}
