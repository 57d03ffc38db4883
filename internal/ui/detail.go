package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/xrayview/internal/imageguard"
	"github.com/five82/xrayview/internal/xray"
)

// detailState holds the detail screen for one scan. The tracker is shared
// across opens so results for a previously shown scan fall in an old
// generation and are ignored.
type detailState struct {
	seq     int
	id      xray.ScanID
	scan    xray.Scan
	fetched bool
	loading bool
	err     error
	images  *imageguard.Tracker

	viewport viewport.Model
	ctx      context.Context
	cancel   context.CancelFunc
}

func newDetailState(mediaURL string) detailState {
	return detailState{
		images:   imageguard.NewTracker(mediaURL),
		viewport: viewport.New(0, 0),
	}
}

// openDetail switches to the detail screen for scan, showing the list copy
// while the full record is fetched.
func (m *Model) openDetail(scan xray.Scan) tea.Cmd {
	m.cancelDetail()
	ctx, cancel := context.WithCancel(m.ctx)

	m.detail.seq++
	m.detail.id = scan.ID
	m.detail.scan = scan
	m.detail.fetched = false
	m.detail.loading = true
	m.detail.err = nil
	m.detail.ctx = ctx
	m.detail.cancel = cancel
	m.detail.images.Reset(nil)
	m.screen = ScreenDetail

	m.refreshDetailViewport()
	m.detail.viewport.GotoTop()
	return fetchScanCmd(ctx, m.api, m.detail.seq, scan.ID)
}

// cancelDetail aborts the detail fetch and any image load it started.
func (m *Model) cancelDetail() {
	if m.detail.cancel != nil {
		m.detail.cancel()
		m.detail.cancel = nil
	}
}

func (m Model) handleDetailMsg(msg detailMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.detail.seq || m.screen != ScreenDetail || isCancelled(msg.err) {
		return m, nil
	}
	m.detail.loading = false
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Str("scan", m.detail.id.String()).Msg("scan detail request failed")
		m.detail.err = msg.err
		m.refreshDetailViewport()
		return m, nil
	}

	m.detail.scan = msg.scan
	m.detail.fetched = true
	m.detail.err = nil
	reqs := m.detail.images.Reset([]xray.Scan{msg.scan})
	m.refreshDetailViewport()
	return m, loadImagesCmd(m.detail.ctx, m.loader, scopeDetail, reqs)
}

// handleDetailKey processes keyboard input for the detail screen.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.cancelDetail()
		m.screen = ScreenList
		return m, nil

	case key.Matches(msg, m.keys.RetryImage):
		if m.detail.loading {
			return m, nil
		}
		if m.detail.err != nil {
			// The record itself failed; fetch it again.
			m.detail.seq++
			m.detail.loading = true
			m.detail.err = nil
			m.refreshDetailViewport()
			return m, fetchScanCmd(m.detail.ctx, m.api, m.detail.seq, m.detail.id)
		}
		req, ok := m.detail.images.Retry(m.detail.scan.ID)
		if !ok {
			return m, nil
		}
		m.refreshDetailViewport()
		return m, loadImagesCmd(m.detail.ctx, m.loader, scopeDetail, []imageguard.Request{req})

	case key.Matches(msg, m.keys.OpenImage):
		guard := m.detail.images.Guard(m.detail.scan.ID)
		switch {
		case guard == nil || guard.URL() == "":
			m.flash = "This scan has no image"
			return m, nil
		case m.openURL == nil:
			m.flash = guard.URL()
			return m, nil
		}
		return m, openURLCmd(m.openURL, guard.URL())

	case key.Matches(msg, m.keys.HalfPageDown):
		vp := &m.detail.viewport
		vp.SetYOffset(vp.YOffset + max(vp.Height/2, 1))
		return m, nil

	case key.Matches(msg, m.keys.HalfPageUp):
		vp := &m.detail.viewport
		vp.SetYOffset(vp.YOffset - max(vp.Height/2, 1))
		return m, nil
	}

	var cmd tea.Cmd
	m.detail.viewport, cmd = m.detail.viewport.Update(msg)
	return m, cmd
}

// handleImageMsg routes an image result to the tracker that issued it.
func (m *Model) handleImageMsg(msg imageMsg) {
	if msg.res.Err != nil && !isCancelled(msg.res.Err) {
		m.log.Debug().Err(msg.res.Err).Str("scan", msg.res.ID.String()).Str("url", msg.res.URL).Msg("image load failed")
	}
	switch msg.scope {
	case scopeList:
		m.list.images.Apply(msg.res)
	case scopeDetail:
		if m.detail.images.Apply(msg.res) {
			m.refreshDetailViewport()
		}
	}
}

func (m *Model) resizeDetailViewport() {
	m.detail.viewport.Width = max(m.width-4, 10)
	m.detail.viewport.Height = max(m.contentHeight()-2, 1)
	m.refreshDetailViewport()
}

func (m *Model) refreshDetailViewport() {
	m.detail.viewport.SetContent(m.renderDetailContent(m.detail.viewport.Width, m.theme.FocusBg))
}

// renderDetail renders the detail screen.
func (m Model) renderDetail() string {
	title := "Scan #" + m.detail.id.String()
	if m.detail.loading {
		title += " · loading"
	}
	return m.renderTitledBox(title, m.detail.viewport.View(), m.width, m.contentHeight(), true)
}

// renderDetailContent renders every field of the scan, its tags as chips and
// the resolved image with its load state.
func (m Model) renderDetailContent(width int, bgColor string) string {
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)
	scan := m.detail.scan
	valueWidth := max(width-15, 10)

	var lines []string
	if m.detail.err != nil {
		msg := "Could not load scan: " + strings.Join(xray.UserMessages(m.detail.err), " ") + " · r to retry"
		lines = append(lines, styles.Banner.Render(truncate(msg, max(width-2, 10))), "")
	}

	section := func(title string) {
		lines = append(lines, bg.Render(title, styles.AccentText.Bold(true)))
	}
	field := func(label, value string) {
		lines = append(lines, bg.Render(padRight(label, 14), styles.MutedText)+bg.Render(truncate(value, valueWidth), styles.Text))
	}

	section("Record")
	field("ID", scan.ID.String())
	field("Patient ID", displayValue(scan.PatientID))
	field("Scan date", displayValue(scan.ScanDate.String()))
	field("Institution", displayValue(scan.Institution))
	lines = append(lines, "")

	section("Findings")
	field("Body part", displayValue(scan.BodyPart))
	field("Diagnosis", displayValue(scan.Diagnosis))
	if len(scan.Tags) > 0 {
		lines = append(lines, bg.Render(padRight("Tags", 14), styles.MutedText)+m.renderTagChips(scan.Tags, bg))
	} else {
		field("Tags", "none")
	}
	lines = append(lines, "")

	section("Description")
	desc := strings.TrimSpace(scan.Description)
	if desc == "" {
		lines = append(lines, bg.Render("No description", styles.FaintText))
	} else {
		wrapped := lipgloss.NewStyle().Width(max(width-2, 10)).Render(desc)
		for _, l := range strings.Split(wrapped, "\n") {
			lines = append(lines, bg.Render(strings.TrimRight(l, " "), styles.Text))
		}
	}
	lines = append(lines, "")

	section("Image")
	guard := m.detail.images.Guard(scan.ID)
	if !m.detail.fetched {
		guard = nil
	}
	if guard != nil && guard.URL() != "" {
		field("URL", truncateMiddle(guard.URL(), valueWidth))
	}
	if !m.detail.fetched && m.detail.loading {
		lines = append(lines, bg.Render(padRight("Image", 14), styles.MutedText)+bg.Render("Waiting for scan...", styles.FaintText))
	} else {
		lines = append(lines, m.renderImagePlaceholder(guard, true, styles, bg))
	}
	if guard != nil && guard.State() == imageguard.Loaded {
		info := guard.Info()
		if info.ContentType != "" {
			field("Type", info.ContentType)
		}
		if info.Size > 0 {
			field("Size", humanize.Bytes(uint64(info.Size)))
		}
	}
	if guard != nil && guard.State() == imageguard.Failed && guard.Err() != nil {
		field("Reason", guard.Err().Error())
	}

	return strings.Join(lines, "\n")
}
