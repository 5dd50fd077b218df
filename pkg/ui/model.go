package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/assettree/internal/datasource"
	"github.com/vanderheijden86/assettree/pkg/debug"
	"github.com/vanderheijden86/assettree/pkg/metrics"
	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
	"github.com/vanderheijden86/assettree/pkg/watcher"
)

const (
	// SplitViewThreshold is the terminal width above which the details pane
	// sits beside the tree.
	SplitViewThreshold = 100

	// DefaultSearchDebounce is the quiet period before a typed search runs.
	DefaultSearchDebounce = 300 * time.Millisecond

	// DefaultExpandDepth expands the first two levels on first display.
	DefaultExpandDepth = 2

	// headerLines is the title bar plus the search/filter bar.
	headerLines = 2
	footerLines = 1
)

// DatasetLoader loads one company's records. *datasource.Loader satisfies it.
type DatasetLoader interface {
	Load(ctx context.Context, companyID string) (datasource.Result, error)
}

// DatasetLoadedMsg carries the result of a dataset load.
type DatasetLoadedMsg struct {
	CompanyID string
	Result    datasource.Result
	Err       error
}

// FileChangedMsg is sent when a watched data file changes on disk.
type FileChangedMsg struct{}

// searchDebounceMsg fires after the search input has been quiet for the
// debounce period. Only the latest seq is honoured.
type searchDebounceMsg struct {
	seq int
}

// Options configures a Model.
type Options struct {
	Companies []model.Company
	CompanyID string
	Loader    DatasetLoader
	// Watcher, when set, triggers a reload of the current company on change.
	Watcher        *watcher.Watcher
	Criteria       tree.Criteria
	Search         string
	ExpandDepth    int
	SearchDebounce time.Duration
	// Theme is "dark", "light" or "auto".
	Theme string
}

// LoadDatasetCmd loads companyID through loader.
func LoadDatasetCmd(loader DatasetLoader, companyID string) tea.Cmd {
	return func() tea.Msg {
		res, err := loader.Load(context.Background(), companyID)
		return DatasetLoadedMsg{CompanyID: companyID, Result: res, Err: err}
	}
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

func searchDebounceCmd(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return searchDebounceMsg{seq: seq}
	})
}

// Model is the terminal asset tree browser.
type Model struct {
	theme   Theme
	loader  DatasetLoader
	watcher *watcher.Watcher

	companies  []model.Company
	companyIdx int

	// Data
	dataset model.Dataset
	records recordIndex
	source  datasource.DataSource
	forest  []*tree.Node // full hierarchy, rebuilt on load
	view    []*tree.Node // filtered and ordered for display
	loading bool
	loadErr error

	// Filters
	query          tree.Query
	search         textinput.Model
	searchSeq      int
	searchDebounce time.Duration

	tree TreeModel

	// Details pane
	showDetails   bool
	detailVP      viewport.Model
	mdRenderer    *glamour.TermRenderer
	lastDetailKey string

	width         int
	height        int
	isSplitView   bool
	showHelp      bool
	statusMsg     string
	statusIsError bool
}

// NewModel creates the browser. The dataset is loaded by Init.
func NewModel(opts Options) Model {
	theme := ThemeFor(lipgloss.NewRenderer(os.Stdout), opts.Theme)

	depth := opts.ExpandDepth
	if depth <= 0 {
		depth = DefaultExpandDepth
	}
	debounce := opts.SearchDebounce
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}

	ti := textinput.New()
	ti.Placeholder = "Search assets and locations"
	ti.Prompt = "/ "
	ti.CharLimit = 120
	ti.SetValue(opts.Search)

	companyIdx := 0
	for i, c := range opts.Companies {
		if c.ID == opts.CompanyID {
			companyIdx = i
			break
		}
	}
	companies := opts.Companies
	if len(companies) == 0 && opts.CompanyID != "" {
		companies = []model.Company{{ID: opts.CompanyID, Name: opts.CompanyID}}
	}

	mdRenderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(60),
	)

	m := Model{
		theme:          theme,
		loader:         opts.Loader,
		watcher:        opts.Watcher,
		companies:      companies,
		companyIdx:     companyIdx,
		query:          tree.Query{Text: opts.Search, Criteria: opts.Criteria},
		search:         ti,
		searchDebounce: debounce,
		tree:           NewTreeModel(theme, depth),
		showDetails:    true,
		detailVP:       viewport.New(40, 20),
		mdRenderer:     mdRenderer,
		loading:        opts.Loader != nil && len(companies) > 0,
		// Default dimensions until the first WindowSizeMsg arrives.
		width:  80,
		height: 24,
	}
	m.resize()
	return m
}

// Init starts the first load and the file watcher.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if c, ok := m.currentCompany(); ok && m.loader != nil {
		cmds = append(cmds, LoadDatasetCmd(m.loader, c.ID))
	}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) currentCompany() (model.Company, bool) {
	if m.companyIdx < 0 || m.companyIdx >= len(m.companies) {
		return model.Company{}, false
	}
	return m.companies[m.companyIdx], true
}

// Query returns the filter currently applied to the tree.
func (m Model) Query() tree.Query {
	return m.query
}

// Tree exposes the tree view state.
func (m Model) Tree() *TreeModel {
	return &m.tree
}

// StatusMessage returns the footer status text.
func (m Model) StatusMessage() string {
	return m.statusMsg
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.lastDetailKey = ""
		m.refreshDetails()

	case DatasetLoadedMsg:
		c, ok := m.currentCompany()
		if !ok || c.ID != msg.CompanyID {
			// Stale load for a company we already switched away from.
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.loadErr = msg.Err
			m.statusMsg = fmt.Sprintf("Load failed: %v", msg.Err)
			m.statusIsError = true
			return m, nil
		}
		m.loadErr = nil
		m.setDataset(msg.Result)

	case FileChangedMsg:
		if c, ok := m.currentCompany(); ok && m.loader != nil {
			debug.Log("data changed, reloading company %s", c.ID)
			cmds = append(cmds, LoadDatasetCmd(m.loader, c.ID))
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case searchDebounceMsg:
		if msg.seq == m.searchSeq && m.search.Value() != m.query.Text {
			m.query.Text = m.search.Value()
			m.applyQuery()
		}

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.handleSearchKeys(msg)
		}
		var cmd tea.Cmd
		m, cmd = m.handleTreeKeys(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleSearchKeys routes keys to the search input while it is focused.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		m.clearSearch()
		return m, nil
	case "enter":
		m.search.Blur()
		m.searchSeq++
		if m.search.Value() != m.query.Text {
			m.query.Text = m.search.Value()
			m.applyQuery()
		}
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	case "up", "down":
		m.search.Blur()
		return m.handleTreeKeys(msg)
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	m.searchSeq++
	return m, tea.Batch(cmd, searchDebounceCmd(m.searchSeq, m.searchDebounce))
}

func (m Model) handleTreeKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.statusMsg = ""
	m.statusIsError = false

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.search.Focus()
		return m, textinput.Blink
	case "esc":
		if m.search.Value() != "" {
			m.clearSearch()
		}
	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "l", "right":
		m.tree.ExpandOrEnter()
	case "h", "left":
		m.tree.CollapseOrJumpToParent()
	case "enter", " ":
		m.tree.ToggleExpand()
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case "ctrl+d", "pgdown":
		m.tree.PageDown()
	case "ctrl+u", "pgup":
		m.tree.PageUp()
	case "+":
		m.tree.ExpandAll()
	case "-":
		m.tree.CollapseAll()
	case "e":
		m.query.Criteria.EnergySensors = !m.query.Criteria.EnergySensors
		m.applyQuery()
	case "c":
		m.query.Criteria.CriticalStatus = !m.query.Criteria.CriticalStatus
		m.applyQuery()
	case "x":
		m.search.SetValue("")
		m.searchSeq++
		m.query = tree.Query{}
		m.applyQuery()
	case "y":
		if node := m.tree.SelectedNode(); node != nil {
			if err := clipboard.WriteAll(node.ID); err != nil {
				m.statusMsg = fmt.Sprintf("Clipboard error: %v", err)
				m.statusIsError = true
			} else {
				m.statusMsg = fmt.Sprintf("Copied %s to clipboard", node.ID)
			}
		}
	case "tab":
		m.showDetails = !m.showDetails
		m.resize()
	case "]", "n":
		return m.switchCompany(1)
	case "[", "p":
		return m.switchCompany(-1)
	case "r":
		if c, ok := m.currentCompany(); ok && m.loader != nil {
			m.loading = true
			return m, LoadDatasetCmd(m.loader, c.ID)
		}
	case "?":
		m.showHelp = !m.showHelp
	case "J":
		m.detailVP.ScrollDown(1)
	case "K":
		m.detailVP.ScrollUp(1)
	}

	m.refreshDetails()
	return m, nil
}

// switchCompany moves to the next (delta 1) or previous (delta -1) company.
func (m Model) switchCompany(delta int) (Model, tea.Cmd) {
	if len(m.companies) < 2 || m.loader == nil {
		return m, nil
	}
	m.companyIdx = (m.companyIdx + delta + len(m.companies)) % len(m.companies)
	m.loading = true
	m.dataset = model.Dataset{}
	m.forest = nil
	m.applyQuery()
	return m, LoadDatasetCmd(m.loader, m.companies[m.companyIdx].ID)
}

func (m *Model) clearSearch() {
	m.search.SetValue("")
	m.searchSeq++
	if m.query.Text != "" {
		m.query.Text = ""
		m.applyQuery()
	}
}

// setDataset rebuilds the full hierarchy from a freshly loaded dataset.
func (m *Model) setDataset(res datasource.Result) {
	m.dataset = res.Dataset
	m.source = res.Source
	m.records = newRecordIndex(res.Dataset)

	stop := metrics.Timer(metrics.TreeBuild)
	m.forest = tree.Build(res.Dataset.Locations, res.Dataset.Assets)
	stop()

	debug.Log("company %s: %d records from %s", res.Dataset.Company.ID, res.Dataset.Size(), res.Source)
	m.applyQuery()
}

// applyQuery filters the full hierarchy and hands the ordered result to the
// tree view.
func (m *Model) applyQuery() {
	stop := metrics.Timer(metrics.TreeFilter)
	view := tree.Apply(m.forest, m.query)
	stop()
	m.view = tree.Sorted(view)
	m.tree.SetForest(m.view, !m.query.IsZero(), m.query.Text)
	m.lastDetailKey = ""
	m.refreshDetails()
}

// resize distributes the terminal between tree and details pane.
func (m *Model) resize() {
	bodyHeight := m.height - headerLines - footerLines
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	m.isSplitView = m.showDetails && m.width > SplitViewThreshold

	if !m.isSplitView {
		m.tree.SetSize(m.width, bodyHeight)
		return
	}

	// Two panels with border(2) each.
	avail := m.width - 4
	treeWidth := avail * 3 / 5
	detailWidth := avail - treeWidth
	m.tree.SetSize(treeWidth, bodyHeight-2)
	m.detailVP.Width = detailWidth
	m.detailVP.Height = bodyHeight - 2
}

// refreshDetails re-renders the details pane when the selection changed.
func (m *Model) refreshDetails() {
	if !m.isSplitView {
		return
	}
	node := m.tree.SelectedNode()
	key := ""
	if node != nil {
		key = node.Key()
	}
	if key == m.lastDetailKey && key != "" {
		return
	}
	m.lastDetailKey = key

	md := detailMarkdown(node, tree.PathTo(m.view, key), m.records)
	rendered := md
	if m.mdRenderer != nil {
		if out, err := m.mdRenderer.Render(md); err == nil {
			rendered = strings.TrimRight(out, " \n")
		}
	}
	m.detailVP.SetContent(rendered)
	m.detailVP.GotoTop()
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var body string
	switch {
	case m.loading:
		body = m.theme.MutedText.Render("Loading…")
	case m.loadErr != nil && len(m.forest) == 0:
		body = m.theme.ErrorText.Render(fmt.Sprintf("Could not load data: %v", m.loadErr))
	default:
		body = m.tree.View()
	}

	if m.isSplitView {
		left := PanelStyle.
			Width(m.tree.width).
			Height(m.tree.height).
			Render(body)
		right := FocusedPanelStyle.
			Width(m.detailVP.Width).
			Height(m.detailVP.Height).
			Render(m.detailVP.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderFilterBar(),
		body,
		m.renderFooter(),
	)
}

// renderHeader shows the app title and the company tabs.
func (m Model) renderHeader() string {
	var parts []string
	parts = append(parts, m.theme.Header.Render("Assets"))
	for i, c := range m.companies {
		name := c.Name
		if name == "" {
			name = c.ID
		}
		if i == m.companyIdx {
			parts = append(parts, m.theme.PrimaryBold.Render("["+name+"]"))
		} else {
			parts = append(parts, m.theme.MutedText.Render(" "+name+" "))
		}
	}
	return strings.Join(parts, " ")
}

// renderFilterBar shows the search input and the criteria toggles.
func (m Model) renderFilterBar() string {
	search := m.search.View()
	if !m.search.Focused() && m.search.Value() == "" {
		search = m.theme.MutedText.Render("/ search")
	}
	toggles := lipgloss.JoinHorizontal(lipgloss.Top,
		RenderToggle(m.theme, "⚡ Energy sensor", m.query.Criteria.EnergySensors),
		" ",
		RenderToggle(m.theme, "● Critical", m.query.Criteria.CriticalStatus),
	)
	gap := m.width - lipgloss.Width(search) - lipgloss.Width(toggles)
	if gap < 1 {
		gap = 1
	}
	return search + strings.Repeat(" ", gap) + toggles
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		if m.statusIsError {
			return m.theme.ErrorText.Render(m.statusMsg)
		}
		return m.theme.SecondaryText.Render(m.statusMsg)
	}
	if m.showHelp {
		return m.theme.MutedText.Render(
			"j/k move  h/l fold  +/- all  / search  e energy  c critical  x clear  y copy  tab details  [/] company  r reload  q quit")
	}
	count := fmt.Sprintf("%d shown", m.tree.NodeCount())
	if m.dataset.Size() > 0 {
		count = fmt.Sprintf("%d shown · %d records", m.tree.NodeCount(), m.dataset.Size())
	}
	return m.theme.MutedText.Render(count + "  ? help")
}
