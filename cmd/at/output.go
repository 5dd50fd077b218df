package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/assettree/internal/datasource"
	"github.com/vanderheijden86/assettree/pkg/debug"
	"github.com/vanderheijden86/assettree/pkg/export"
	"github.com/vanderheijden86/assettree/pkg/loader"
	"github.com/vanderheijden86/assettree/pkg/metrics"
	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
	"github.com/vanderheijden86/assettree/pkg/watcher"
)

const (
	formatText   = "text"
	formatJSON   = "json"
	formatSVG    = "svg"
	formatPNG    = "png"
	formatSQLite = "sqlite"
)

// buildForest builds the hierarchy, rejecting duplicates and cycles in
// strict mode.
func (a *app) buildForest(ds model.Dataset) ([]*tree.Node, error) {
	stop := metrics.Timer(metrics.TreeBuild)
	defer stop()
	if a.opts.Strict {
		return tree.BuildStrict(ds.Locations, ds.Assets)
	}
	return tree.Build(ds.Locations, ds.Assets), nil
}

// export loads the company once and writes it in the requested format.
func (a *app) export(ctx context.Context, companyID string) error {
	res, err := a.loader.Load(ctx, companyID)
	if err != nil {
		return err
	}
	debug.Log("exporting company %s from %s", companyID, res.Source)

	if a.opts.Format == formatSQLite {
		return export.WriteSQLite(ctx, a.opts.Out, res.Dataset)
	}

	forest, err := a.buildForest(res.Dataset)
	if err != nil {
		return err
	}
	q := a.opts.query()
	stop := metrics.Timer(metrics.TreeFilter)
	filtered := tree.Apply(forest, q)
	stop()

	return a.withOutput(func(w io.Writer) error {
		return a.write(w, res.Dataset.Company, q, filtered)
	})
}

// withOutput runs fn against --out (replaced atomically) or stdout.
func (a *app) withOutput(fn func(io.Writer) error) error {
	if a.opts.Out == "" {
		return fn(a.stdout)
	}
	tmp := a.opts.Out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close output: %w", err)
	}
	return os.Rename(tmp, a.opts.Out)
}

func (a *app) write(w io.Writer, company model.Company, q tree.Query, forest []*tree.Node) error {
	graphic := export.GraphicOptions{Title: companyTitle(company), Subtitle: describeQuery(q)}

	switch a.opts.Format {
	case formatJSON:
		return export.WriteDocument(w, export.NewDocument(company, q, forest))
	case formatSVG:
		return export.WriteSVG(w, forest, graphic)
	case formatPNG:
		return export.WritePNG(w, forest, graphic)
	default:
		empty := "No items available"
		if !q.IsZero() {
			empty = "No results found"
		}
		return export.WriteText(w, forest, export.TextOptions{
			ShowIDs:    a.opts.ShowIDs,
			ShowStatus: true,
			Empty:      empty,
		})
	}
}

func companyTitle(c model.Company) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// describeQuery summarizes the active filters, e.g. `"pump" · energy · critical`.
func describeQuery(q tree.Query) string {
	var parts []string
	if text := strings.TrimSpace(q.Text); text != "" {
		parts = append(parts, fmt.Sprintf("%q", text))
	}
	if q.Criteria.EnergySensors {
		parts = append(parts, "energy")
	}
	if q.Criteria.CriticalStatus {
		parts = append(parts, "critical")
	}
	return strings.Join(parts, " · ")
}

// watchPaths lists the files a company's data is read from.
func (a *app) watchPaths(companyID string) []string {
	paths := loader.DataFiles(a.opts.DataDir, companyID)
	db := a.opts.Database
	if db == "" && a.opts.DataDir != "" {
		db = filepath.Join(a.opts.DataDir, datasource.DefaultDatabaseName)
	}
	if db != "" {
		if _, err := os.Stat(db); err == nil {
			paths = append(paths, db)
		}
	}
	return paths
}

func (a *app) startWatcher(companyID string) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(a.watchPaths(companyID),
		watcher.WithPollInterval(a.cfg.Watch.PollInterval),
		watcher.WithOnError(func(err error) { a.warn(err.Error()) }),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// watchAndExport writes the output, then rewrites it on every data change
// until ctx is cancelled.
func (a *app) watchAndExport(ctx context.Context, companyID string) error {
	w, err := a.startWatcher(companyID)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := a.export(ctx, companyID); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changed():
			if err := a.export(ctx, companyID); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				// Keep watching after a failed reload.
				a.warn(err.Error())
			}
		}
	}
}
