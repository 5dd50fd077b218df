package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/assettree/internal/datasource"
	"github.com/vanderheijden86/assettree/pkg/config"
	"github.com/vanderheijden86/assettree/pkg/metrics"
	"github.com/vanderheijden86/assettree/pkg/tree"
	"github.com/vanderheijden86/assettree/pkg/ui"
	"github.com/vanderheijden86/assettree/pkg/version"
)

// cliOptions holds the parsed command line.
type cliOptions struct {
	DataDir       string
	Database      string
	Company       string
	Search        string
	Energy        bool
	Critical      bool
	Format        string
	Out           string
	Watch         bool
	Strict        bool
	ShowIDs       bool
	ListCompanies bool
	Sources       bool
	Metrics       bool
	Version       bool
	CPUProfile    string

	// set records which flags were given explicitly, so config values only
	// fill in the rest.
	set map[string]bool
}

func parseFlags(args []string, errOut io.Writer) (cliOptions, error) {
	var o cliOptions
	fs := flag.NewFlagSet("at", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.DataDir, "data", "", "Data directory (companies.json, <company>/locations.json, <company>/assets.json)")
	fs.StringVar(&o.Database, "db", "", "SQLite database (default <data>/assets.db)")
	fs.StringVar(&o.Company, "company", "", "Company ID to show")
	fs.StringVar(&o.Search, "search", "", "Only show nodes whose name contains this text, with their ancestors")
	fs.BoolVar(&o.Energy, "energy", false, "Only show energy sensors, with their ancestors")
	fs.BoolVar(&o.Critical, "critical", false, "Only show nodes in alert, with their ancestors")
	fs.StringVar(&o.Format, "format", "", "Output format: text, json, svg, png, sqlite (default: TUI on a terminal, text otherwise)")
	fs.StringVar(&o.Out, "out", "", "Write output to this file instead of stdout")
	fs.BoolVar(&o.Watch, "watch", false, "Reload when the data files change")
	fs.BoolVar(&o.Strict, "strict", false, "Fail on duplicate IDs and reference cycles")
	fs.BoolVar(&o.ShowIDs, "ids", false, "Show node IDs in text output")
	fs.BoolVar(&o.ListCompanies, "list-companies", false, "List the known companies and exit")
	fs.BoolVar(&o.Sources, "sources", false, "List the discovered data sources for the company and exit")
	fs.BoolVar(&o.Metrics, "metrics", false, "Print timing metrics to stderr on exit")
	fs.BoolVar(&o.Version, "version", false, "Show version")
	fs.StringVar(&o.CPUProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.Usage = func() {
		fmt.Fprintln(errOut, "Usage: at [options]")
		fmt.Fprintln(errOut, "\nBrowse the location and asset hierarchy of a company.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	switch o.Format {
	case "", formatText, formatJSON, formatSVG, formatPNG, formatSQLite:
	default:
		return o, fmt.Errorf("unknown format %q", o.Format)
	}
	if o.Format == formatSQLite && o.Out == "" {
		return o, errors.New("--format sqlite needs --out")
	}
	return o, nil
}

// merge fills in everything the command line left open from cfg.
func (o cliOptions) merge(cfg config.Config) cliOptions {
	if !o.set["data"] {
		o.DataDir = cfg.DataDir
	}
	if !o.set["db"] {
		o.Database = cfg.Database
	}
	if !o.set["company"] {
		o.Company = cfg.DefaultCompany
	}
	if !o.set["energy"] {
		o.Energy = cfg.Filters.EnergySensors
	}
	if !o.set["critical"] {
		o.Critical = cfg.Filters.CriticalStatus
	}
	if !o.set["watch"] {
		o.Watch = cfg.Watch.Enabled
	}
	return o
}

func (o cliOptions) query() tree.Query {
	return tree.Query{
		Text:     o.Search,
		Criteria: tree.Criteria{EnergySensors: o.Energy, CriticalStatus: o.Critical},
	}
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if opts.Version {
		fmt.Printf("at %s\n", version.Version)
		return 0
	}

	// CPU profiling support
	if opts.CPUProfile != "" {
		f, err := os.Create(opts.CPUProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: %v\n", cfgErr)
	}
	opts = opts.merge(cfg)

	if opts.Metrics {
		metrics.SetEnabled(true)
		defer func() { fmt.Fprint(os.Stderr, metrics.Report()) }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(opts, cfg, os.Stdout, os.Stderr)
	a.interactive = opts.Format == "" && opts.Out == "" && isTerminal(os.Stdout) && isTerminal(os.Stdin)

	if err := a.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// app wires config, loader and output together for one invocation.
type app struct {
	opts        cliOptions
	cfg         config.Config
	stdout      io.Writer
	stderr      io.Writer
	loader      *datasource.Loader
	interactive bool
	// pick chooses among several companies; nil means no prompting.
	pick companyPicker
}

func newApp(opts cliOptions, cfg config.Config, stdout, stderr io.Writer) *app {
	a := &app{
		opts:   opts,
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
	}
	a.loader = datasource.NewLoader(datasource.Options{
		DataDir:        opts.DataDir,
		Database:       opts.Database,
		WarningHandler: a.warn,
	})
	return a
}

func (a *app) warn(msg string) {
	fmt.Fprintf(a.stderr, "Warning: %s\n", msg)
}

func (a *app) run(ctx context.Context) error {
	if a.opts.ListCompanies {
		return a.listCompanies(ctx)
	}

	if a.interactive && a.pick == nil {
		a.pick = huhPicker
	}
	companyID, err := a.resolveCompany(ctx)
	if err != nil {
		return err
	}

	if a.opts.Sources {
		return a.listSources(companyID)
	}

	if a.interactive {
		return a.runTUI(ctx, companyID)
	}
	if a.opts.Watch {
		return a.watchAndExport(ctx, companyID)
	}
	return a.export(ctx, companyID)
}

func (a *app) listCompanies(ctx context.Context) error {
	companies, err := a.loader.Companies(ctx)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		fmt.Fprintln(a.stdout, "No companies found.")
		return nil
	}
	for _, c := range companies {
		fmt.Fprintf(a.stdout, "%s\t%s\n", c.ID, c.Name)
	}
	return nil
}

func (a *app) listSources(companyID string) error {
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		DataDir:                a.opts.DataDir,
		Database:               a.opts.Database,
		CompanyID:              companyID,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("company %s: %w", companyID, datasource.ErrNoSource)
	}
	for _, s := range sources {
		fmt.Fprintln(a.stdout, s.String())
	}
	return nil
}

func (a *app) runTUI(ctx context.Context, companyID string) error {
	if a.opts.Strict {
		// Validate up front; the TUI itself always shows a best-effort tree.
		res, err := a.loader.Load(ctx, companyID)
		if err != nil {
			return err
		}
		if _, err := tree.BuildStrict(res.Dataset.Locations, res.Dataset.Assets); err != nil {
			return err
		}
	}

	companies, err := a.loader.Companies(ctx)
	if err != nil {
		a.warn(err.Error())
	}

	uiOpts := ui.Options{
		Companies:      companies,
		CompanyID:      companyID,
		Loader:         a.loader,
		Criteria:       a.opts.query().Criteria,
		Search:         a.opts.Search,
		ExpandDepth:    a.cfg.UI.ExpandDepth,
		SearchDebounce: a.cfg.UI.SearchDebounce,
		Theme:          a.cfg.UI.Theme,
	}
	if a.opts.Watch {
		w, err := a.startWatcher(companyID)
		if err != nil {
			a.warn(fmt.Sprintf("live reload disabled: %v", err))
		} else {
			defer w.Stop()
			uiOpts.Watcher = w
		}
	}

	m := ui.NewModel(uiOpts)
	return runTUIProgram(ctx, m)
}

func runTUIProgram(ctx context.Context, m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM: quit first, kill if it hangs.
	go func() {
		select {
		case <-runDone:
			return
		case <-ctx.Done():
		}

		p.Quit()

		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			p.Kill()
		}
	}()

	// Optional auto-quit for automated tests: set AT_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("AT_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
				case <-timer.C:
					p.Quit()
				}
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
