package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/xrayview/internal/imageguard"
	"github.com/five82/xrayview/internal/prefs"
	"github.com/five82/xrayview/internal/scans"
	"github.com/five82/xrayview/internal/xray"
)

// Screen is the active top-level screen.
type Screen int

const (
	ScreenList Screen = iota
	ScreenDetail
	ScreenUpload
)

// ScanAPI is what the detail and upload screens need from the scan service.
// *xray.Client implements it.
type ScanAPI interface {
	GetScan(ctx context.Context, id xray.ScanID) (xray.Scan, error)
	CreateScan(ctx context.Context, form xray.UploadForm) (xray.Scan, error)
	imageguard.Prober
}

var _ ScanAPI = (*xray.Client)(nil)

// Options configures the UI.
type Options struct {
	Context          context.Context
	API              ScanAPI
	Scans            *scans.Client
	MediaURL         string
	SearchDebounce   time.Duration
	ImageConcurrency int64
	ThemeName        string
	PrefsPath        string
	LogPath          string
	Logger           zerolog.Logger
	OpenURL          func(string) error // nil disables opening images
	StartDir         string             // file picker fallback directory
	UploadDir        string             // directory of the last picked image
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	api       ScanAPI
	scans     *scans.Client
	loader    *imageguard.Loader
	mediaURL  string
	debounce  time.Duration
	prefsPath string
	logPath   string
	startDir  string
	uploadDir string
	openURL   func(string) error
	log       zerolog.Logger
	keys      keyMap

	// UI state
	theme    Theme
	screen   Screen
	width    int
	height   int
	ready    bool
	showHelp bool
	flash    string

	// Screens
	list   listState
	detail detailState
	upload uploadState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themeOrder[0]
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:       ctx,
		api:       opts.API,
		scans:     opts.Scans,
		loader:    imageguard.NewLoader(opts.API, opts.ImageConcurrency),
		mediaURL:  opts.MediaURL,
		debounce:  opts.SearchDebounce,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		startDir:  opts.StartDir,
		uploadDir: opts.UploadDir,
		openURL:   opts.OpenURL,
		log:       opts.Logger,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		screen:    ScreenList,
	}
	m.list = newListState(opts.MediaURL)
	m.detail = newDetailState(opts.MediaURL)
	m.upload = newUploadState()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.scans == nil {
		return nil
	}
	return loadAllCmd(m.ctx, m.scans)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeDetailViewport()
		m.resizeFilePicker()
		return m, nil

	case listMsg:
		return m.handleListMsg(msg)

	case searchTickMsg:
		return m.handleSearchTick(msg)

	case imageMsg:
		m.handleImageMsg(msg)
		return m, nil

	case detailMsg:
		return m.handleDetailMsg(msg)

	case uploadMsg:
		return m.handleUploadMsg(msg)

	case openedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Str("url", msg.url).Msg("open image failed")
			m.flash = "Could not open browser: " + msg.err.Error()
		} else {
			m.flash = "Opened " + truncateMiddle(msg.url, 60)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.upload.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.upload.spinner, cmd = m.upload.spinner.Update(msg)
		return m, cmd
	}

	// Directory listings and other internal messages of the file picker.
	if m.screen == ScreenUpload && m.upload.picking {
		var cmd tea.Cmd
		m.upload.picker, cmd = m.upload.picker.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.screen == ScreenList && m.list.picker != nil {
		return m.renderPicker()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area for the current screen.
func (m Model) renderContent() string {
	switch m.screen {
	case ScreenDetail:
		return m.renderDetail()
	case ScreenUpload:
		return m.renderUpload()
	default:
		return m.renderList()
	}
}

// contentHeight is what remains below the header and command bar.
func (m Model) contentHeight() int {
	return max(m.height-2, 3)
}

// handleKey routes keyboard input. Text entry (upload form, search box,
// option picker) takes precedence over single-letter shortcuts.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	m.flash = ""

	switch {
	case m.screen == ScreenUpload:
		return m.handleUploadKey(msg)
	case m.screen == ScreenList && m.list.picker != nil:
		return m.handlePickerKey(msg)
	case m.screen == ScreenList && m.list.searching:
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshDetailViewport()
		return m, nil
	}

	switch m.screen {
	case ScreenDetail:
		return m.handleDetailKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

// savePrefs persists the theme and the last upload directory.
func (m *Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, UploadDir: m.uploadDir}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn().Err(err).Msg("save prefs failed")
	}
}

// Messages

// listMsg carries the outcome of a scans client call. full marks an
// unfiltered fetch, which also re-derives the filter options.
type listMsg struct {
	scans []xray.Scan
	err   error
	full  bool
}

type searchTickMsg struct{ seq int }

type imageScope int

const (
	scopeList imageScope = iota
	scopeDetail
)

type imageMsg struct {
	scope imageScope
	res   imageguard.Result
}

type detailMsg struct {
	seq  int
	scan xray.Scan
	err  error
}

type uploadMsg struct {
	seq  int
	scan xray.Scan
	err  error
}

type openedMsg struct {
	url string
	err error
}

// Commands

func loadAllCmd(ctx context.Context, c *scans.Client) tea.Cmd {
	return func() tea.Msg {
		list, err := c.LoadAll(ctx)
		return listMsg{scans: list, err: err, full: true}
	}
}

func applyFiltersCmd(ctx context.Context, c *scans.Client, f scans.FilterState) tea.Cmd {
	return func() tea.Msg {
		list, err := c.ApplyFilters(ctx, f)
		return listMsg{scans: list, err: err, full: f.IsEmpty()}
	}
}

func clearFiltersCmd(ctx context.Context, c *scans.Client) tea.Cmd {
	return func() tea.Msg {
		list, err := c.Clear(ctx)
		return listMsg{scans: list, err: err, full: true}
	}
}

func searchTickCmd(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
}

func loadImagesCmd(ctx context.Context, loader *imageguard.Loader, scope imageScope, reqs []imageguard.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, func() tea.Msg {
			return imageMsg{scope: scope, res: loader.Load(ctx, req)}
		})
	}
	return tea.Batch(cmds...)
}

func fetchScanCmd(ctx context.Context, api ScanAPI, seq int, id xray.ScanID) tea.Cmd {
	return func() tea.Msg {
		scan, err := api.GetScan(ctx, id)
		return detailMsg{seq: seq, scan: scan, err: err}
	}
}

func createScanCmd(ctx context.Context, api ScanAPI, seq int, form xray.UploadForm) tea.Cmd {
	return func() tea.Msg {
		scan, err := api.CreateScan(ctx, form)
		return uploadMsg{seq: seq, scan: scan, err: err}
	}
}

func openURLCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

// isCancelled reports errors caused by leaving a screen.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, scans.ErrSuperseded)
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
