package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/five82/xrayview/internal/scans"
	"github.com/five82/xrayview/internal/xray"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var headingCaser = cases.Upper(language.English)

// headings upper-cases column names the way table output shows them.
func headings(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = headingCaser.String(n)
	}
	return out
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// scanView is a scan plus the image URL a client would load.
type scanView struct {
	xray.Scan `yaml:",inline"`
	ImageURL  string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

type optionsView struct {
	BodyParts    []string `json:"body_part" yaml:"body_part"`
	Diagnoses    []string `json:"diagnosis" yaml:"diagnosis"`
	Institutions []string `json:"institution" yaml:"institution"`
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeScans(w io.Writer, format string, list []xray.Scan) error {
	if format != formatTable {
		if list == nil {
			list = []xray.Scan{}
		}
		return writeStructured(w, format, list)
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No scans found.")
		return err
	}

	t := newTable().Headers(headings("ID", "Patient", scans.BodyPart.Label(), "Date",
		scans.Institution.Label(), scans.Diagnosis.Label(), "Tags")...)
	for _, s := range list {
		t.Row(s.ID.String(), s.PatientID, s.BodyPart, s.ScanDate.String(), s.Institution, s.Diagnosis, strings.Join(s.Tags, ", "))
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func writeScan(w io.Writer, format string, v scanView) error {
	if format != formatTable {
		return writeStructured(w, format, v)
	}
	image := v.ImageURL
	if image == "" {
		image = "No Image"
	}
	t := newTable().Headers(headings("Field", "Value")...).Rows(
		[]string{"ID", v.ID.String()},
		[]string{"Patient", v.PatientID},
		[]string{"Body part", v.BodyPart},
		[]string{"Scan date", v.ScanDate.String()},
		[]string{"Institution", v.Institution},
		[]string{"Diagnosis", v.Diagnosis},
		[]string{"Description", v.Description},
		[]string{"Tags", strings.Join(v.Tags, ", ")},
		[]string{"Image", image},
	)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func optionValues(opts []scans.FilterOption) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Value)
	}
	return out
}

func writeOptions(w io.Writer, format string, opts scans.FilterOptions) error {
	view := optionsView{
		BodyParts:    optionValues(opts.BodyParts),
		Diagnoses:    optionValues(opts.Diagnoses),
		Institutions: optionValues(opts.Institutions),
	}
	if format != formatTable {
		return writeStructured(w, format, view)
	}

	t := newTable().Headers(headings("Field", "Values")...)
	for _, field := range scans.Fields {
		values := optionValues(opts.For(field))
		for i, v := range values {
			if v == "" {
				values[i] = "(blank)"
			}
		}
		t.Row(field.Label(), strings.Join(values, ", "))
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}
