package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/xrayview/internal/scans"
	"github.com/five82/xrayview/internal/xray"
)

// uploadField describes one input of the upload form.
type uploadField struct {
	name        string
	label       string
	placeholder string
}

var uploadFields = []uploadField{
	{xray.FieldPatientID, "Patient ID", "e.g. P-10231"},
	{xray.FieldBodyPart, "Body part", "e.g. Chest"},
	{xray.FieldScanDate, "Scan date", "YYYY-MM-DD"},
	{xray.FieldInstitution, "Institution", "e.g. General Hospital"},
	{xray.FieldDescription, "Description", "what the scan shows"},
	{xray.FieldDiagnosis, "Diagnosis", "e.g. Pneumonia"},
	{xray.FieldTags, "Tags", "comma separated, optional"},
	{xray.FieldImage, "Image file", "path, or ctrl+o to browse"},
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff", ".dcm"}

// uploadState holds the upload form.
type uploadState struct {
	inputs []textinput.Model
	focus  int

	picker  filepicker.Model
	picking bool

	submitting bool
	spinner    spinner.Model
	seq        int
	cancel     context.CancelFunc

	fieldErrs map[string]string
	messages  []string
}

func newUploadState() uploadState {
	inputs := make([]textinput.Model, len(uploadFields))
	for i, f := range uploadFields {
		in := textinput.New()
		in.Placeholder = f.placeholder
		in.CharLimit = 255
		in.Width = 48
		in.Prompt = ""
		inputs[i] = in
	}
	return uploadState{
		inputs:  inputs,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// openUpload shows an empty form with the first field focused.
func (m *Model) openUpload() tea.Cmd {
	seq := m.upload.seq
	m.upload = newUploadState()
	m.upload.seq = seq
	m.screen = ScreenUpload
	return m.upload.inputs[0].Focus()
}

// form collects the input values.
func (u uploadState) form() xray.UploadForm {
	v := func(name string) string {
		for i, f := range uploadFields {
			if f.name == name {
				return strings.TrimSpace(u.inputs[i].Value())
			}
		}
		return ""
	}
	return xray.UploadForm{
		PatientID:   v(xray.FieldPatientID),
		BodyPart:    v(xray.FieldBodyPart),
		ScanDate:    v(xray.FieldScanDate),
		Institution: v(xray.FieldInstitution),
		Description: v(xray.FieldDescription),
		Diagnosis:   v(xray.FieldDiagnosis),
		Tags:        v(xray.FieldTags),
		ImagePath:   v(xray.FieldImage),
	}
}

func (u *uploadState) setFocus(i int) tea.Cmd {
	u.inputs[u.focus].Blur()
	u.focus = (i + len(u.inputs)) % len(u.inputs)
	return u.inputs[u.focus].Focus()
}

func (u *uploadState) imageInput() *textinput.Model {
	return &u.inputs[len(u.inputs)-1]
}

// handleUploadKey processes keyboard input for the upload screen. Letters
// go to the focused input, so only control keys act as shortcuts here.
func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.upload.picking {
		return m.handleFilePickerKey(msg)
	}

	if m.upload.submitting {
		if key.Matches(msg, m.keys.Escape) {
			if m.upload.cancel != nil {
				m.upload.cancel()
				m.upload.cancel = nil
			}
			m.upload.submitting = false
			m.flash = "Upload cancelled"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Escape):
		m.screen = ScreenList
		return m, nil

	case key.Matches(msg, m.keys.SubmitForm):
		cmd := m.submitUpload()
		return m, cmd

	case key.Matches(msg, m.keys.PickFile):
		cmd := m.openFilePicker()
		return m, cmd

	case key.Matches(msg, m.keys.NextField), key.Matches(msg, m.keys.Confirm):
		cmd := m.upload.setFocus(m.upload.focus + 1)
		return m, cmd

	case key.Matches(msg, m.keys.PrevField):
		cmd := m.upload.setFocus(m.upload.focus - 1)
		return m, cmd
	}

	var cmd tea.Cmd
	m.upload.inputs[m.upload.focus], cmd = m.upload.inputs[m.upload.focus].Update(msg)
	return m, cmd
}

// submitUpload validates the form and, only if it passes, sends it.
func (m *Model) submitUpload() tea.Cmd {
	form := m.upload.form()
	m.upload.messages = nil
	m.upload.fieldErrs = nil

	if err := form.Validate(); err != nil {
		m.upload.fieldErrs = fieldErrors(err)
		m.upload.messages = xray.UserMessages(err)
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.upload.seq++
	m.upload.cancel = cancel
	m.upload.submitting = true
	m.log.Info().Str("patient", form.PatientID).Str("image", form.ImagePath).Msg("uploading scan")
	return tea.Batch(m.upload.spinner.Tick, createScanCmd(ctx, m.api, m.upload.seq, form))
}

func (m Model) handleUploadMsg(msg uploadMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.upload.seq || !m.upload.submitting {
		return m, nil
	}
	m.upload.submitting = false
	if m.upload.cancel != nil {
		m.upload.cancel()
		m.upload.cancel = nil
	}

	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("upload failed")
		m.upload.fieldErrs = fieldErrors(msg.err)
		m.upload.messages = xray.UserMessages(msg.err)
		return m, nil
	}

	m.log.Info().Str("scan", msg.scan.ID.String()).Msg("scan uploaded")
	m.flash = "Uploaded scan"
	if msg.scan.ID != "" {
		m.flash += " #" + msg.scan.ID.String()
	}

	// Back to a fresh, unfiltered list that includes the new scan.
	m.screen = ScreenList
	m.list.filters = scans.FilterState{}
	m.list.search.SetValue("")
	m.list.searchSeq++
	m.list.loading = true
	return m, loadAllCmd(m.ctx, m.scans)
}

// fieldErrors maps client or server errors onto form fields.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs xray.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			if _, seen := out[e.Field]; !seen {
				out[e.Field] = e.Message
			}
		}
		return out
	}
	var se *xray.ServerError
	if errors.As(err, &se) {
		for field, msgs := range se.Fields {
			if len(msgs) > 0 {
				out[field] = strings.Join(msgs, " ")
			}
		}
	}
	return out
}

// openFilePicker browses from the directory of the current image path, the
// directory of the last picked image, or the start directory.
func (m *Model) openFilePicker() tea.Cmd {
	dir := m.startDir
	if m.uploadDir != "" {
		dir = m.uploadDir
	}
	if current := strings.TrimSpace(m.upload.imageInput().Value()); current != "" {
		if info, err := os.Stat(filepath.Dir(current)); err == nil && info.IsDir() {
			dir = filepath.Dir(current)
		}
	}
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = home
		} else {
			dir = "."
		}
	}

	fp := filepicker.New()
	fp.AllowedTypes = imageExtensions
	fp.CurrentDirectory = dir
	fp.ShowSize = true
	fp.AutoHeight = false
	m.upload.picker = fp
	m.upload.picking = true
	m.resizeFilePicker()
	return m.upload.picker.Init()
}

func (m *Model) resizeFilePicker() {
	m.upload.picker.Height = max(m.contentHeight()-8, 5)
}

func (m Model) handleFilePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		m.upload.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.upload.picker, cmd = m.upload.picker.Update(msg)
	if ok, path := m.upload.picker.DidSelectFile(msg); ok {
		m.upload.imageInput().SetValue(path)
		m.upload.picking = false
		delete(m.upload.fieldErrs, xray.FieldImage)
		m.uploadDir = filepath.Dir(path)
		m.savePrefs()
		return m, nil
	}
	if ok, path := m.upload.picker.DidSelectDisabledFile(msg); ok {
		m.flash = filepath.Base(path) + " is not an image file"
	}
	return m, cmd
}

// renderUpload renders the upload form, or the file picker while browsing.
func (m Model) renderUpload() string {
	bgColor := m.theme.FocusBg
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)
	width := m.width - 4

	var lines []string
	if m.upload.picking {
		lines = append(lines,
			bg.Render("Select an image ("+strings.Join(imageExtensions, " ")+")", styles.MutedText),
			bg.Render(truncateMiddle(m.upload.picker.CurrentDirectory, width), styles.AccentText),
			"",
			m.upload.picker.View(),
			"",
			bg.Render("enter: choose  •  esc: back to form", styles.FaintText),
		)
		return m.renderTitledBox("New scan · choose image", strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
	}

	for i, f := range uploadFields {
		labelStyle := styles.MutedText
		if i == m.upload.focus {
			labelStyle = styles.AccentText.Bold(true)
		}
		lines = append(lines, bg.Render(padRight(f.label, 14), labelStyle)+m.upload.inputs[i].View())
		if msg := m.upload.fieldErrs[f.name]; msg != "" {
			lines = append(lines, bg.Spaces(14)+bg.Render(msg, styles.DangerText))
		}
	}
	lines = append(lines, "")

	switch {
	case m.upload.submitting:
		lines = append(lines, m.upload.spinner.View()+bg.Space()+bg.Render("Uploading...", styles.InfoText))
	case len(m.upload.messages) > 0:
		box := lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(m.theme.Danger)).
			Padding(0, 1).
			Width(max(width-4, 20))
		var msgs []string
		for _, line := range m.upload.messages {
			msgs = append(msgs, "• "+line)
		}
		lines = append(lines, box.Render(strings.Join(msgs, "\n")))
	}

	lines = append(lines, "", bg.Render("tab: next field  •  ctrl+o: browse  •  ctrl+s: submit  •  esc: cancel", styles.FaintText))
	return m.renderTitledBox("New scan", strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}
