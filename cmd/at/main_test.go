package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/assettree/internal/datasource"
	"github.com/vanderheijden86/assettree/pkg/config"
	"github.com/vanderheijden86/assettree/pkg/metrics"
	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

const (
	testCompanies = `[{"id":"acme","name":"Acme"},{"id":"globex","name":"Globex"}]`
	testLocations = `[
  {"id":"L1","name":"Plant"},
  {"id":"L2","name":"Hall","parentId":"L1"}
]`
	testAssets = `[
  {"id":"A1","name":"Pump","locationId":"L1"},
  {"id":"A2","name":"Motor","parentId":"A1","sensorType":"energy","status":"alert"},
  {"id":"A3","name":"Sensor","locationId":"L2","sensorType":"vibration","status":"operating"},
  {"id":"A4","name":"Crate"}
]`
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeDataDir lays out a data directory with two companies; only acme has
// records.
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "companies.json"), testCompanies)
	writeFile(t, filepath.Join(dir, "acme", "locations.json"), testLocations)
	writeFile(t, filepath.Join(dir, "acme", "assets.json"), testAssets)
	return dir
}

func newTestApp(t *testing.T, args ...string) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	opts, err := parseFlags(args, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags(%v): %v", args, err)
	}
	var stdout, stderr bytes.Buffer
	return newApp(opts, config.DefaultConfig(), &stdout, &stderr), &stdout, &stderr
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"defaults", nil, ""},
		{"text", []string{"--format", "text"}, ""},
		{"png", []string{"--format=png", "--out", "x.png"}, ""},
		{"unknown format", []string{"--format", "xml"}, "unknown format"},
		{"sqlite needs out", []string{"--format", "sqlite"}, "needs --out"},
		{"stray argument", []string{"acme"}, "unexpected argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMergeFlagsOverConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/from/config"
	cfg.DefaultCompany = "acme"
	cfg.Filters.EnergySensors = true
	cfg.Filters.CriticalStatus = true

	opts, err := parseFlags([]string{"--data", "/from/flag", "--energy=false"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	opts = opts.merge(cfg)

	if opts.DataDir != "/from/flag" {
		t.Errorf("DataDir = %q, want flag value", opts.DataDir)
	}
	if opts.Company != "acme" {
		t.Errorf("Company = %q, want config default", opts.Company)
	}
	want := tree.Criteria{EnergySensors: false, CriticalStatus: true}
	if got := opts.query().Criteria; got != want {
		t.Errorf("Criteria = %+v, want %+v", got, want)
	}
}

func TestRunTextOutput(t *testing.T) {
	dir := writeDataDir(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "whole tree",
			want: "Plant\n" +
				"├── Hall\n" +
				"│   └── Sensor (operating) <vibration>\n" +
				"└── Pump\n" +
				"    └── Motor (alert) <energy>\n" +
				"Crate\n",
		},
		{
			name: "search",
			args: []string{"--search", "MOT"},
			want: "Plant\n" +
				"└── Pump\n" +
				"    └── Motor (alert) <energy>\n",
		},
		{
			name: "search then criteria",
			args: []string{"--search", "sensor", "--critical"},
			want: "No results found\n",
		},
		{
			name: "ids",
			args: []string{"--search", "crate", "--ids"},
			want: "Crate [A4]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--data", dir, "--company", "acme"}, tt.args...)
			a, stdout, _ := newTestApp(t, args...)
			if err := a.run(context.Background()); err != nil {
				t.Fatalf("run: %v", err)
			}
			if got := stdout.String(); got != tt.want {
				t.Errorf("output mismatch\n got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestRunFiltersThroughTreeApply(t *testing.T) {
	metrics.SetEnabled(true)
	metrics.ResetAll()
	t.Cleanup(func() {
		metrics.SetEnabled(false)
		metrics.ResetAll()
	})

	a, stdout, _ := newTestApp(t, "--data", writeDataDir(t), "--company", "acme", "--search", "motor", "--critical")
	if err := a.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := metrics.TreeFilter.Count(); n != 1 {
		t.Errorf("tree_filter recorded %d passes, want 1", n)
	}
	if !strings.Contains(stdout.String(), "Motor") {
		t.Errorf("output lost the match:\n%s", stdout.String())
	}
}

func TestRunJSONOutput(t *testing.T) {
	dir := writeDataDir(t)
	a, stdout, _ := newTestApp(t, "--data", dir, "--company", "acme", "--format", "json", "--energy")
	if err := a.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var doc struct {
		Company model.Company `json:"company"`
		Count   int           `json:"count"`
		Roots   []*tree.Node  `json:"roots"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if doc.Company.Name != "Acme" {
		t.Errorf("company = %+v", doc.Company)
	}
	if doc.Count != 3 {
		t.Errorf("count = %d, want 3 (Plant, Pump, Motor)", doc.Count)
	}
	if len(doc.Roots) != 1 || doc.Roots[0].Name != "Plant" {
		t.Errorf("roots = %+v", doc.Roots)
	}
}

func TestRunGraphicOutputToFile(t *testing.T) {
	dir := writeDataDir(t)
	tests := []struct {
		format string
		magic  string
	}{
		{"svg", "<?xml"},
		{"png", "\x89PNG"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "tree."+tt.format)
			a, stdout, _ := newTestApp(t, "--data", dir, "--company", "acme", "--format", tt.format, "--out", out)
			if err := a.run(context.Background()); err != nil {
				t.Fatalf("run: %v", err)
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout should be empty, got %q", stdout.String())
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(data, []byte(tt.magic)) {
				t.Errorf("%s output starts with %q", tt.format, data[:min(len(data), 8)])
			}
			if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("temporary file left behind")
			}
		})
	}
}

func TestRunSQLiteExportRoundTrip(t *testing.T) {
	dir := writeDataDir(t)
	db := filepath.Join(t.TempDir(), "out.db")

	a, _, _ := newTestApp(t, "--data", dir, "--company", "acme", "--format", "sqlite", "--out", db)
	if err := a.run(context.Background()); err != nil {
		t.Fatalf("export: %v", err)
	}

	// Reading back through the database alone gives the same tree.
	empty := t.TempDir()
	b, stdout, _ := newTestApp(t, "--data", empty, "--db", db, "--company", "acme", "--search", "motor")
	if err := b.run(context.Background()); err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "Plant\n└── Pump\n    └── Motor (alert) <energy>\n"
	if got := stdout.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRunStrictRejectsDuplicates(t *testing.T) {
	dir := writeDataDir(t)
	writeFile(t, filepath.Join(dir, "acme", "assets.json"),
		`[{"id":"A1","name":"Pump"},{"id":"A1","name":"Pump again"}]`)

	a, _, _ := newTestApp(t, "--data", dir, "--company", "acme")
	if err := a.run(context.Background()); err != nil {
		t.Fatalf("lenient run: %v", err)
	}

	strict, _, _ := newTestApp(t, "--data", dir, "--company", "acme", "--strict")
	err := strict.run(context.Background())
	if !errors.Is(err, tree.ErrDuplicateID) {
		t.Fatalf("strict run error = %v, want ErrDuplicateID", err)
	}
}

func TestRunListCompanies(t *testing.T) {
	dir := writeDataDir(t)
	a, stdout, _ := newTestApp(t, "--data", dir, "--list-companies")
	if err := a.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, want := stdout.String(), "acme\tAcme\nglobex\tGlobex\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRunListSources(t *testing.T) {
	dir := writeDataDir(t)
	a, stdout, _ := newTestApp(t, "--data", dir, "--company", "acme", "--sources")
	if err := a.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), filepath.Join(dir, "acme")) {
		t.Errorf("sources output missing JSON dir: %q", stdout.String())
	}

	b, _, _ := newTestApp(t, "--data", dir, "--company", "nobody", "--sources")
	if err := b.run(context.Background()); !errors.Is(err, datasource.ErrNoSource) {
		t.Errorf("unknown company error = %v, want ErrNoSource", err)
	}
}

func TestResolveCompany(t *testing.T) {
	dir := writeDataDir(t)

	t.Run("explicit", func(t *testing.T) {
		a, _, _ := newTestApp(t, "--data", dir, "--company", "globex")
		got, err := a.resolveCompany(context.Background())
		if err != nil || got != "globex" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("ambiguous without picker", func(t *testing.T) {
		a, _, _ := newTestApp(t, "--data", dir)
		_, err := a.resolveCompany(context.Background())
		if err == nil || !strings.Contains(err.Error(), "acme, globex") {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("picker", func(t *testing.T) {
		a, _, _ := newTestApp(t, "--data", dir)
		var offered []string
		a.pick = func(cs []model.Company) (string, error) {
			for _, c := range cs {
				offered = append(offered, c.ID)
			}
			return cs[1].ID, nil
		}
		got, err := a.resolveCompany(context.Background())
		if err != nil || got != "globex" {
			t.Fatalf("got %q, %v", got, err)
		}
		if strings.Join(offered, ",") != "acme,globex" {
			t.Errorf("offered %v", offered)
		}
	})

	t.Run("single company", func(t *testing.T) {
		single := t.TempDir()
		writeFile(t, filepath.Join(single, "companies.json"), `[{"id":"solo","name":"Solo"}]`)
		a, _, _ := newTestApp(t, "--data", single)
		got, err := a.resolveCompany(context.Background())
		if err != nil || got != "solo" {
			t.Fatalf("got %q, %v", got, err)
		}
	})
}

func TestWatchPaths(t *testing.T) {
	dir := writeDataDir(t)
	a, _, _ := newTestApp(t, "--data", dir)

	paths := a.watchPaths("acme")
	want := []string{
		filepath.Join(dir, "companies.json"),
		filepath.Join(dir, "acme", "locations.json"),
		filepath.Join(dir, "acme", "assets.json"),
	}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Errorf("paths = %v, want %v", paths, want)
	}

	writeFile(t, filepath.Join(dir, datasource.DefaultDatabaseName), "")
	if got := a.watchPaths("acme"); len(got) != 4 {
		t.Errorf("database not watched: %v", got)
	}
}

func TestDescribeQuery(t *testing.T) {
	q := tree.Query{Text: " pump ", Criteria: tree.Criteria{EnergySensors: true, CriticalStatus: true}}
	if got, want := describeQuery(q), `"pump" · energy · critical`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := describeQuery(tree.Query{}); got != "" {
		t.Errorf("empty query described as %q", got)
	}
}
