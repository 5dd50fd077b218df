// Package loader reads company, location and asset records from a data
// directory laid out as:
//
//	<data_dir>/companies.json
//	<data_dir>/<companyId>/locations.json
//	<data_dir>/<companyId>/assets.json
//
// Each file may be a JSON array (.json) or one object per line (.jsonl).
// Malformed records are skipped with a warning; the rest of the file loads.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/assettree/pkg/debug"
	"github.com/vanderheijden86/assettree/pkg/metrics"
	"github.com/vanderheijden86/assettree/pkg/model"
)

// DataDirEnvVar overrides the configured data directory.
const DataDirEnvVar = "AT_DATA_DIR"

// Base names of the data files, without extension.
const (
	CompaniesFile = "companies"
	LocationsFile = "locations"
	AssetsFile    = "assets"
)

// Extensions accepted for data files, in lookup order.
var Extensions = []string{".json", ".jsonl"}

// DefaultMaxBufferSize is the default buffer size for JSONL lines (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

var (
	ErrNotFound       = errors.New("data file not found")
	ErrInvalidCompany = errors.New("invalid company id")
)

// ParseOptions configures record parsing.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum JSONL line size in bytes.
	// If 0, uses DefaultMaxBufferSize.
	BufferSize int
}

func (o ParseOptions) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// Format is the on-disk encoding of a data file.
type Format int

const (
	FormatJSON Format = iota
	FormatJSONL
)

// FormatOf returns the format implied by a file name.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return FormatJSONL
	}
	return FormatJSON
}

// CompanyDir returns the directory holding one company's files.
func CompanyDir(dataDir, companyID string) (string, error) {
	id := strings.TrimSpace(companyID)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCompany, companyID)
	}
	return filepath.Join(dataDir, id), nil
}

// FindDataFile locates base.json or base.jsonl in dir.
func FindDataFile(dir, base string) (string, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, base+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s{%s} in %s", ErrNotFound, base, strings.Join(Extensions, ","), dir)
}

// DataFiles returns the files a company's dataset is read from, for watching.
// Files that do not exist yet are omitted.
func DataFiles(dataDir, companyID string) []string {
	var files []string
	if path, err := FindDataFile(dataDir, CompaniesFile); err == nil {
		files = append(files, path)
	}
	dir, err := CompanyDir(dataDir, companyID)
	if err != nil {
		return files
	}
	for _, base := range []string{LocationsFile, AssetsFile} {
		if path, err := FindDataFile(dir, base); err == nil {
			files = append(files, path)
		}
	}
	return files
}

// ParseLocations decodes location records. Records without an id are skipped.
func ParseLocations(r io.Reader, format Format, opts ParseOptions) ([]model.Location, error) {
	warn := opts.warn()
	var out []model.Location
	err := decodeRecords(r, format, opts, func(raw []byte, pos int) {
		var loc model.Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			warn(fmt.Sprintf("skipping malformed location at record %d: %v", pos, err))
			return
		}
		loc.Normalize()
		if err := loc.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid location at record %d: %v", pos, err))
			return
		}
		out = append(out, loc)
	})
	return out, err
}

// ParseAssets decodes asset records. Unknown sensor types and statuses are
// cleared with a warning; records without an id are skipped.
func ParseAssets(r io.Reader, format Format, opts ParseOptions) ([]model.Asset, error) {
	warn := opts.warn()
	var out []model.Asset
	err := decodeRecords(r, format, opts, func(raw []byte, pos int) {
		var a model.Asset
		if err := json.Unmarshal(raw, &a); err != nil {
			warn(fmt.Sprintf("skipping malformed asset at record %d: %v", pos, err))
			return
		}
		for _, field := range a.Normalize() {
			warn(fmt.Sprintf("asset %s: ignoring unknown %s", a.ID, field))
		}
		if err := a.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid asset at record %d: %v", pos, err))
			return
		}
		out = append(out, a)
	})
	return out, err
}

// ParseCompanies decodes company records.
func ParseCompanies(r io.Reader, format Format, opts ParseOptions) ([]model.Company, error) {
	warn := opts.warn()
	var out []model.Company
	err := decodeRecords(r, format, opts, func(raw []byte, pos int) {
		var c model.Company
		if err := json.Unmarshal(raw, &c); err != nil {
			warn(fmt.Sprintf("skipping malformed company at record %d: %v", pos, err))
			return
		}
		c.ID = strings.TrimSpace(c.ID)
		if err := c.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid company at record %d: %v", pos, err))
			return
		}
		out = append(out, c)
	})
	return out, err
}

// decodeRecords splits r into raw records and hands each to fn with its
// 1-based position (array index or line number).
func decodeRecords(r io.Reader, format Format, opts ParseOptions, fn func(raw []byte, pos int)) error {
	if format == FormatJSONL {
		return decodeLines(r, opts, fn)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading records: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decoding record array: %w", err)
	}
	for i, raw := range raws {
		fn(raw, i+1)
	}
	return nil
}

func decodeLines(r io.Reader, opts ParseOptions, fn func(raw []byte, pos int)) error {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	warn := opts.warn()
	reader := bufio.NewReaderSize(r, maxCapacity)

	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("skipping long line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		// ReadLine reuses its buffer.
		fn(append([]byte(nil), line...), lineNum)
	}
}

// stripBOM removes the UTF-8 Byte Order Mark if present.
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}

func openAndParse[T any](path string, opts ParseOptions, parse func(io.Reader, Format, ParseOptions) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := parse(f, FormatOf(path), opts)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// LoadCompanies reads the company list from dataDir.
func LoadCompanies(dataDir string, opts ParseOptions) ([]model.Company, error) {
	path, err := FindDataFile(dataDir, CompaniesFile)
	if err != nil {
		return nil, err
	}
	return openAndParse(path, opts, ParseCompanies)
}

// LoadDataset reads one company's locations and assets. The two files are
// read concurrently. A missing companies file is tolerated and the company
// name falls back to its id; a missing locations or assets file is an error.
func LoadDataset(ctx context.Context, dataDir, companyID string, opts ParseOptions) (model.Dataset, error) {
	defer metrics.Timer(metrics.DatasetLoad)()
	start := time.Now()

	dir, err := CompanyDir(dataDir, companyID)
	if err != nil {
		return model.Dataset{}, err
	}
	locPath, err := FindDataFile(dir, LocationsFile)
	if err != nil {
		return model.Dataset{}, err
	}
	assetPath, err := FindDataFile(dir, AssetsFile)
	if err != nil {
		return model.Dataset{}, err
	}

	opts.WarningHandler = serialize(opts.warn())
	ds := model.Dataset{Company: companyRecord(dataDir, companyID, opts)}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		locs, err := openAndParse(locPath, opts, ParseLocations)
		ds.Locations = locs
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		assets, err := openAndParse(assetPath, opts, ParseAssets)
		ds.Assets = assets
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Dataset{}, err
	}

	debug.Log("loaded company %s: %d locations, %d assets in %v",
		ds.Company.ID, len(ds.Locations), len(ds.Assets), time.Since(start))
	return ds, nil
}

// companyRecord resolves the company's display record from companies.json.
func companyRecord(dataDir, companyID string, opts ParseOptions) model.Company {
	fallback := model.Company{ID: strings.TrimSpace(companyID), Name: strings.TrimSpace(companyID)}
	companies, err := LoadCompanies(dataDir, opts)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			opts.warn()(fmt.Sprintf("reading companies: %v", err))
		}
		return fallback
	}
	for _, c := range companies {
		if c.ID == fallback.ID {
			return c
		}
	}
	return fallback
}

func serialize(warn func(string)) func(string) {
	var mu sync.Mutex
	return func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		warn(msg)
	}
}
