package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/xrayview/internal/imageguard"
	"github.com/five82/xrayview/internal/scans"
	"github.com/five82/xrayview/internal/state"
	"github.com/five82/xrayview/internal/xray"
)

// listState holds the list screen: the last snapshot, the filters the user
// has asked for and the per-row image guards.
type listState struct {
	snapshot    state.Snapshot
	filters     scans.FilterState
	options     scans.FilterOptions
	selectedRow int
	loading     bool
	images      *imageguard.Tracker

	// imagesCancel aborts probes for the rows currently shown.
	imagesCancel context.CancelFunc

	search    textinput.Model
	searching bool
	searchSeq int

	picker *optionPicker
}

func newListState(mediaURL string) listState {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "description, diagnosis or tag"
	search.CharLimit = 120
	search.Width = 40
	return listState{
		loading: true,
		images:  imageguard.NewTracker(mediaURL),
		search:  search,
	}
}

// handleListMsg stores the outcome of a list request. Superseded results
// are dropped; a newer request is already in flight.
func (m Model) handleListMsg(msg listMsg) (tea.Model, tea.Cmd) {
	if isCancelled(msg.err) {
		return m, nil
	}
	m.list.loading = false
	m.list.snapshot = m.scans.Snapshot()
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("scan list request failed")
		return m, nil
	}
	if msg.full {
		m.list.options = m.scans.Options()
	}
	m.updateSelection()
	ctx := m.restartListImages()
	reqs := m.list.images.Reset(m.list.snapshot.Scans)
	return m, loadImagesCmd(ctx, m.loader, scopeList, reqs)
}

// restartListImages cancels probes still running for the previous list so
// they release their loader slots, and returns the context for the new one.
func (m *Model) restartListImages() context.Context {
	if m.list.imagesCancel != nil {
		m.list.imagesCancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.list.imagesCancel = cancel
	return ctx
}

// handleListKey processes keyboard input for the list screen.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.list.snapshot.Scans)

	switch {
	case key.Matches(msg, m.keys.Search):
		m.list.searching = true
		cmd := m.list.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.PickBodyPart):
		m.openPicker(scans.BodyPart)
		return m, nil

	case key.Matches(msg, m.keys.PickDiagnosis):
		m.openPicker(scans.Diagnosis)
		return m, nil

	case key.Matches(msg, m.keys.PickInstitution):
		m.openPicker(scans.Institution)
		return m, nil

	case key.Matches(msg, m.keys.ClearFilters):
		m.list.filters = scans.FilterState{}
		m.list.search.SetValue("")
		m.list.searchSeq++ // drop any pending debounce
		m.list.loading = true
		return m, clearFiltersCmd(m.ctx, m.scans)

	case key.Matches(msg, m.keys.Reload):
		cmd := m.reload()
		return m, cmd

	case key.Matches(msg, m.keys.NewUpload):
		cmd := m.openUpload()
		return m, cmd

	case key.Matches(msg, m.keys.OpenDetail):
		if scan := m.selectedScan(); scan != nil {
			cmd := m.openDetail(*scan)
			return m, cmd
		}
		return m, nil
	}

	if count == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.list.selectedRow < count-1 {
			m.list.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.list.selectedRow > 0 {
			m.list.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.list.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.list.selectedRow = count - 1
	}
	return m, nil
}

// reload repeats the current query. With no filters set it is a full load,
// which also refreshes the picker options.
func (m *Model) reload() tea.Cmd {
	m.list.loading = true
	if m.list.filters.IsEmpty() {
		return loadAllCmd(m.ctx, m.scans)
	}
	return applyFiltersCmd(m.ctx, m.scans, m.list.filters)
}

// updateSelection keeps the selected scan selected across list updates.
func (m *Model) updateSelection() {
	var selectedID xray.ScanID
	if scan := m.selectedScan(); scan != nil {
		selectedID = scan.ID
	}
	items := m.list.snapshot.Scans
	if len(items) == 0 {
		m.list.selectedRow = 0
		return
	}
	if selectedID != "" {
		for i, item := range items {
			if item.ID == selectedID {
				m.list.selectedRow = i
				return
			}
		}
	}
	if m.list.selectedRow >= len(items) {
		m.list.selectedRow = len(items) - 1
	}
}

func (m Model) selectedScan() *xray.Scan {
	items := m.list.snapshot.Scans
	if m.list.selectedRow < 0 || m.list.selectedRow >= len(items) {
		return nil
	}
	scan := items[m.list.selectedRow]
	return &scan
}

// renderList renders the list screen: optional error banner, the search
// line and a table/preview split.
func (m Model) renderList() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	var top []string
	if err := m.list.snapshot.LastError; err != nil {
		top = append(top, m.renderErrorBanner(err))
	}
	top = append(top, m.renderSearchLine())
	height -= len(top)

	var body string
	switch {
	case !m.list.snapshot.Loaded && m.list.loading:
		body = lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("Loading scans..."))
	case !m.list.snapshot.Loaded:
		body = lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("No scans loaded. Press r to retry."))
	case len(m.list.snapshot.Scans) == 0:
		msg := "No scans found"
		if !m.list.filters.IsEmpty() {
			msg += " for the current filters. Press c to clear."
		}
		body = lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render(msg))
	default:
		body = m.renderListPanes(height)
	}

	return strings.Join(append(top, body), "\n")
}

func (m Model) renderListPanes(height int) string {
	tableWidth := m.width * 60 / 100
	if m.width >= 160 {
		tableWidth = m.width * 50 / 100
	}
	previewWidth := m.width - tableWidth

	table := m.renderScanTable(tableWidth-2, m.theme.FocusBg)
	tablePane := m.renderTitledBox(m.listTitle(), table, tableWidth, height, true)

	var preview string
	if scan := m.selectedScan(); scan != nil {
		preview = m.renderScanSummary(*scan, m.list.images.Guard(scan.ID), previewWidth-4, m.theme.SurfaceAlt)
	} else {
		preview = m.theme.Styles().MutedText.Render("Select a scan")
	}
	previewPane := m.renderTitledBox("Preview", preview, previewWidth, height, false)

	return lipgloss.JoinHorizontal(lipgloss.Top, tablePane, previewPane)
}

// Column widths; the diagnosis column takes what is left.
const (
	colID       = 6
	colBodyPart = 12
	colDate     = 10
	colImage    = 2
)

// renderScanTable renders the scans as styled rows under a header row.
func (m Model) renderScanTable(width int, bgColor string) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()
	diagWidth := max(width-colID-colBodyPart-colDate-colImage-5, 8)

	header := padRight("ID", colID) + " " + padRight("Body part", colBodyPart) + " " +
		padRight("Diagnosis", diagWidth) + " " + padRight("Date", colDate) + " " + "Im"
	lines := []string{bg.FillLine(bg.Render(header, styles.FaintText.Bold(true)), width)}

	for i, scan := range m.list.snapshot.Scans {
		rowBg := bgColor
		selected := i == m.list.selectedRow
		if selected {
			rowBg = m.theme.SelectionBg
		}
		rb := NewBgStyle(rowBg)

		idStyle, textStyle, dateStyle := styles.MutedText, styles.Text, styles.FaintText
		if selected {
			sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
			idStyle, textStyle, dateStyle = sel, sel, sel
		}

		imgState := imageguard.Missing
		if g := m.list.images.Guard(scan.ID); g != nil {
			imgState = g.State()
		}
		imgStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ImageColor(imgState)))

		row := rb.Render(padRight(scan.ID.String(), colID), idStyle) + rb.Space() +
			rb.Render(padRight(displayValue(scan.BodyPart), colBodyPart), textStyle) + rb.Space() +
			rb.Render(padRight(displayValue(scan.Diagnosis), diagWidth), textStyle) + rb.Space() +
			rb.Render(padRight(scan.ScanDate.String(), colDate), dateStyle) + rb.Space() +
			rb.Render(imageGlyph(imgState), imgStyle)
		lines = append(lines, rb.FillLine(row, width))
	}
	return strings.Join(lines, "\n")
}

// imageGlyph is the one-cell image indicator shown in the table.
func imageGlyph(s imageguard.State) string {
	switch s {
	case imageguard.Loaded:
		return "●"
	case imageguard.Loading:
		return "…"
	case imageguard.Failed:
		return "✕"
	default:
		return "—"
	}
}

// renderScanSummary renders the fields of a scan plus its image placeholder.
// It backs both the list preview and the detail screen.
func (m Model) renderScanSummary(scan xray.Scan, guard *imageguard.Guard, width int, bgColor string) string {
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)

	field := func(label, value string) string {
		return bg.Render(padRight(label, 13), styles.MutedText) + bg.Render(truncate(value, max(width-14, 4)), styles.Text)
	}

	lines := []string{
		bg.Render("Scan #"+scan.ID.String(), styles.AccentText.Bold(true)),
		"",
		field("Patient", displayValue(scan.PatientID)),
		field("Body part", displayValue(scan.BodyPart)),
		field("Scan date", displayValue(scan.ScanDate.String())),
		field("Institution", displayValue(scan.Institution)),
		field("Diagnosis", displayValue(scan.Diagnosis)),
	}
	if len(scan.Tags) > 0 {
		lines = append(lines, bg.Render(padRight("Tags", 13), styles.MutedText)+m.renderTagChips(scan.Tags, bg))
	}
	lines = append(lines, "", m.renderImagePlaceholder(guard, false, styles, bg))
	return strings.Join(lines, "\n")
}

func (m Model) renderTagChips(tags xray.Tags, bg BgStyle) string {
	chips := make([]string, 0, len(tags))
	for _, t := range tags {
		chips = append(chips, m.theme.Styles().Chip.Render(t))
	}
	return bg.Join(chips, " ")
}

// renderImagePlaceholder renders the image line from the guard state.
func (m Model) renderImagePlaceholder(guard *imageguard.Guard, withRetryHint bool, styles Styles, bg BgStyle) string {
	label := bg.Render(padRight("Image", 13), styles.MutedText)
	if guard == nil {
		return label + bg.Render("No Image", styles.FaintText)
	}
	stateStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ImageColor(guard.State())))
	switch guard.State() {
	case imageguard.Missing:
		return label + bg.Render("No Image", styles.FaintText)
	case imageguard.Loading:
		return label + bg.Render("Loading image...", stateStyle)
	case imageguard.Failed:
		text := "Image unavailable"
		if withRetryHint {
			text += " (r to retry)"
		}
		return label + bg.Render(text, stateStyle)
	default:
		info := guard.Info()
		text := "Image ready"
		if info.ContentType != "" {
			text += " · " + info.ContentType
		}
		return label + bg.Render(text, stateStyle)
	}
}

// renderErrorBanner shows the last fetch error above the (stale) list.
func (m Model) renderErrorBanner(err error) string {
	msgs := xray.UserMessages(err)
	text := "Could not load scans"
	if len(msgs) > 0 {
		text += ": " + strings.Join(msgs, " ")
	}
	text += " · r to retry"
	return m.theme.Styles().Banner.Width(m.width).Render(truncate(text, max(m.width-2, 10)))
}

func (m Model) listTitle() string {
	total := len(m.list.snapshot.Scans)
	if m.list.filters.IsEmpty() {
		return fmt.Sprintf("Scans (%d)", total)
	}
	return fmt.Sprintf("Scans (%d) · filtered", total)
}
