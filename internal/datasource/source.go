// Package datasource discovers, validates and selects where a company's
// records are read from: a SQLite database or a JSON data directory. When
// both exist the freshest valid source wins, SQLite breaking ties.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vanderheijden86/assettree/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database (assets.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSONDir is a company directory of JSON/JSONL files
	SourceTypeJSONDir SourceType = "json_dir"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite  = 100
	PriorityJSONDir = 50
)

// DefaultDatabaseName is looked up inside the data directory.
const DefaultDatabaseName = "assets.db"

// ErrNoSource is returned when no valid source holds the requested company.
var ErrNoSource = errors.New("no valid data source")

// DataSource represents a potential source of company records
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the database file or the company directory
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the latest modification time of the source files
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// RecordCount is the number of locations plus assets (set during validation)
	RecordCount int `json:"record_count"`
	// Size is the total size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, records=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RecordCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// DataDir is the root data directory
	DataDir string
	// Database overrides <DataDir>/assets.db
	Database string
	// CompanyID scopes the JSON directory lookup and validation
	CompanyID string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Logger receives discovery messages; nil discards them
	Logger func(msg string)
}

func (o DiscoveryOptions) databasePath() string {
	if o.Database != "" {
		return o.Database
	}
	if o.DataDir == "" {
		return ""
	}
	return filepath.Join(o.DataDir, DefaultDatabaseName)
}

// DiscoverSources finds every source that could hold the company's records,
// ordered freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	logf := func(format string, args ...any) {
		if opts.Logger != nil {
			opts.Logger(fmt.Sprintf(format, args...))
		}
	}
	if opts.DataDir == "" && opts.Database == "" {
		return nil, fmt.Errorf("%w: no data directory or database configured", ErrNoSource)
	}

	var sources []DataSource

	if dbPath := opts.databasePath(); dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil && !info.IsDir() {
			sources = append(sources, DataSource{
				Type:     SourceTypeSQLite,
				Path:     dbPath,
				Priority: PrioritySQLite,
				ModTime:  info.ModTime(),
				Size:     info.Size(),
			})
			logf("Found SQLite: %s (mod=%s)", dbPath, info.ModTime().Format(time.RFC3339))
		}
	}

	if opts.DataDir != "" && opts.CompanyID != "" {
		if src, ok := discoverJSONDir(opts.DataDir, opts.CompanyID); ok {
			sources = append(sources, src)
			logf("Found JSON dir: %s (mod=%s)", src.Path, src.ModTime.Format(time.RFC3339))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i], opts.CompanyID); err != nil {
				logf("Validation failed for %s: %v", sources[i].Path, err)
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	logf("Discovered %d sources", len(sources))
	return sources, nil
}

// discoverJSONDir reports the company directory when it holds at least one
// data file. ModTime is the newest file's.
func discoverJSONDir(dataDir, companyID string) (DataSource, bool) {
	dir, err := loader.CompanyDir(dataDir, companyID)
	if err != nil {
		return DataSource{}, false
	}
	src := DataSource{Type: SourceTypeJSONDir, Path: dir, Priority: PriorityJSONDir}
	found := false
	for _, base := range []string{loader.LocationsFile, loader.AssetsFile} {
		path, err := loader.FindDataFile(dir, base)
		if err != nil {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		found = true
		src.Size += info.Size()
		if info.ModTime().After(src.ModTime) {
			src.ModTime = info.ModTime()
		}
	}
	return src, found
}

// sortSources orders by mod time (newest first), then priority.
func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

// SelectBestSource returns the freshest valid source; on equal mod times the
// higher priority wins.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	candidates := make([]DataSource, 0, len(sources))
	for _, s := range sources {
		if s.Valid {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return DataSource{}, ErrNoSource
	}
	sortSources(candidates)
	return candidates[0], nil
}
