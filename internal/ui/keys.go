package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	// List
	Search          key.Binding
	PickBodyPart    key.Binding
	PickDiagnosis   key.Binding
	PickInstitution key.Binding
	ClearFilters    key.Binding
	Reload          key.Binding
	OpenDetail      key.Binding
	NewUpload       key.Binding

	// Picker
	Unset key.Binding

	// Detail
	RetryImage key.Binding
	OpenImage  key.Binding

	// Upload form
	NextField  key.Binding
	PrevField  key.Binding
	PickFile   key.Binding
	SubmitForm key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		PickBodyPart: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Body part filter"),
		),
		PickDiagnosis: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Diagnosis filter"),
		),
		PickInstitution: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Institution filter"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Clear filters"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload"),
		),
		OpenDetail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open scan"),
		),
		NewUpload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Upload scan"),
		),

		Unset: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Unset filter"),
		),

		RetryImage: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Retry image"),
		),
		OpenImage: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Open image in browser"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		PickFile: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "Browse for image"),
		),
		SubmitForm: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Submit"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view, one group per screen.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.OpenDetail, k.Escape},
		{k.Search, k.PickBodyPart, k.PickDiagnosis, k.PickInstitution, k.Unset, k.ClearFilters, k.Reload},
		{k.RetryImage, k.OpenImage, k.HalfPageDown, k.HalfPageUp},
		{k.NewUpload, k.NextField, k.PrevField, k.PickFile, k.SubmitForm},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
