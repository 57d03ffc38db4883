package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/xrayview/internal/scans"
)

// optionPicker is the modal listing the values of one filter field.
type optionPicker struct {
	field   scans.Field
	options []scans.FilterOption
	cursor  int
}

// handleSearchKey edits the search box. Every change re-queries once the
// input has been quiet for the debounce interval.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.list.searching = false
		m.list.search.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		// Apply now instead of waiting for the debounce.
		m.list.searching = false
		m.list.search.Blur()
		m.list.searchSeq++
		cmd := m.applySearch()
		return m, cmd
	}

	before := m.list.search.Value()
	var cmd tea.Cmd
	m.list.search, cmd = m.list.search.Update(msg)
	if m.list.search.Value() == before {
		return m, cmd
	}

	m.list.searchSeq++
	if m.debounce <= 0 {
		apply := m.applySearch()
		return m, tea.Batch(cmd, apply)
	}
	return m, tea.Batch(cmd, searchTickCmd(m.debounce, m.list.searchSeq))
}

// handleSearchTick fires the query for the latest keystroke only.
func (m Model) handleSearchTick(msg searchTickMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.list.searchSeq {
		return m, nil
	}
	cmd := m.applySearch()
	return m, cmd
}

// applySearch queries with the current search text if it changed.
func (m *Model) applySearch() tea.Cmd {
	text := strings.TrimSpace(m.list.search.Value())
	if text == m.list.filters.Search {
		return nil
	}
	m.list.filters = m.list.filters.WithSearch(text)
	m.list.loading = true
	return applyFiltersCmd(m.ctx, m.scans, m.list.filters)
}

// openPicker shows the option list for field. Options come from the last
// unfiltered load so narrowing one filter never hides values of another.
func (m *Model) openPicker(field scans.Field) {
	options := m.list.options.For(field)
	if len(options) == 0 {
		m.flash = "No " + strings.ToLower(field.Label()) + " values loaded yet"
		return
	}
	p := &optionPicker{field: field, options: options}
	if current, ok := m.list.filters.Get(field); ok {
		for i, o := range options {
			if o.Value == current {
				p.cursor = i
				break
			}
		}
	}
	m.list.picker = p
}

// handlePickerKey navigates the option picker. Enter sets the filter, x
// unsets it, esc closes without changes.
func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.list.picker
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.list.picker = nil
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		m.list.picker = nil
		m.list.filters = m.list.filters.With(p.field, p.options[p.cursor].Value)
		m.list.loading = true
		return m, applyFiltersCmd(m.ctx, m.scans, m.list.filters)

	case key.Matches(msg, m.keys.Unset):
		m.list.picker = nil
		if _, ok := m.list.filters.Get(p.field); !ok {
			return m, nil
		}
		m.list.filters = m.list.filters.Without(p.field)
		m.list.loading = true
		return m, applyFiltersCmd(m.ctx, m.scans, m.list.filters)

	case key.Matches(msg, m.keys.Down):
		if p.cursor < len(p.options)-1 {
			p.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, m.keys.Top):
		p.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		p.cursor = len(p.options) - 1
	}
	return m, nil
}

// renderSearchLine shows the search box and the active filters.
func (m Model) renderSearchLine() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)

	var search string
	switch {
	case m.list.searching:
		search = m.list.search.View()
	case m.list.search.Value() != "":
		search = bg.Render("/ "+m.list.search.Value(), styles.AccentText)
	default:
		search = bg.Render("/ to search", styles.FaintText)
	}

	parts := []string{search}
	for _, f := range scans.Fields {
		label := bg.Render(f.Label()+":", styles.MutedText)
		if v, ok := m.list.filters.Get(f); ok {
			parts = append(parts, label+bg.Space()+bg.Render(displayValue(v), styles.AccentText))
		} else {
			parts = append(parts, label+bg.Space()+bg.Render("any", styles.FaintText))
		}
	}
	if m.list.loading {
		parts = append(parts, bg.Render("loading...", styles.InfoText))
	}
	return bg.FillLine(bg.Join(parts, "   "), m.width)
}

// renderPicker renders the option picker modal.
func (m Model) renderPicker() string {
	styles := m.theme.Styles()
	p := m.list.picker

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(titleCase(p.field.String()) + " Filter"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 36)))
	b.WriteString("\n\n")

	current, isSet := m.list.filters.Get(p.field)

	// Window the options around the cursor.
	visible := max(m.height-14, 5)
	start := 0
	if p.cursor >= visible {
		start = p.cursor - visible + 1
	}
	end := min(start+visible, len(p.options))

	for i := start; i < end; i++ {
		o := p.options[i]
		marker := "  "
		if isSet && o.Value == current {
			marker = "✓ "
		}
		line := marker + truncate(displayValue(o.Label), 32)
		if i == p.cursor {
			b.WriteString(lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.SelectionBg)).
				Foreground(lipgloss.Color(m.theme.SelectionText)).
				Width(36).
				Render(line))
		} else {
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Enter: Apply  •  x: Unset  •  Esc: Cancel"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
