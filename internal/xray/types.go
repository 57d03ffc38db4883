package xray

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ScanID is the opaque identifier of a scan. The API may send it as a JSON
// number or string; it is always carried as text.
type ScanID string

// UnmarshalJSON accepts numbers and strings.
func (id *ScanID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ScanID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = ScanID(n.String())
	return nil
}

func (id ScanID) String() string { return string(id) }

// Date is a calendar date. The original text is kept so unparseable values
// still render.
type Date struct {
	Time time.Time
	Raw  string
}

// ParseDate parses YYYY-MM-DD, falling back to RFC3339 timestamps.
func ParseDate(value string) Date {
	value = strings.TrimSpace(value)
	d := Date{Raw: value}
	if value == "" {
		return d
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		d.Time = t
		return d
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return d
}

// IsZero reports whether the date carries no parsed value.
func (d Date) IsZero() bool { return d.Time.IsZero() }

func (d Date) String() string {
	if d.Time.IsZero() {
		return d.Raw
	}
	return d.Time.Format(dateLayout)
}

// UnmarshalJSON accepts a date string or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDate(s)
	return nil
}

// MarshalJSON writes the date as YYYY-MM-DD (or the raw text).
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalYAML writes the date as a plain string.
func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Tags is the ordered label list of a scan. The backend stores whatever the
// uploader sent, so a JSON string holding an array (or a comma list) is
// accepted as well as a real array.
type Tags []string

// UnmarshalJSON accepts an array, a string holding an array, a comma list or null.
func (t *Tags) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			*t = list
			return nil
		}
	}
	*t = SplitTags(s)
	return nil
}

// SplitTags splits a comma separated list, trimming entries and dropping empties.
func SplitTags(raw string) Tags {
	parts := strings.Split(raw, ",")
	tags := make(Tags, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// Scan mirrors one record returned by /scans/.
type Scan struct {
	ID          ScanID `json:"id" yaml:"id"`
	PatientID   string `json:"patient_id" yaml:"patient_id"`
	BodyPart    string `json:"body_part" yaml:"body_part"`
	ScanDate    Date   `json:"scan_date" yaml:"scan_date"`
	Institution string `json:"institution" yaml:"institution"`
	Description string `json:"description" yaml:"description"`
	Diagnosis   string `json:"diagnosis" yaml:"diagnosis"`
	Tags        Tags   `json:"tags" yaml:"tags"`
	Image       string `json:"image" yaml:"image"`
}

// decodeScanList normalizes a list payload. The API returns either a bare
// array or an envelope with the array under "results"; anything else yields
// an empty list.
func decodeScanList(data []byte) ([]Scan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []Scan{}, nil
	}
	switch trimmed[0] {
	case '[':
		var scans []Scan
		if err := json.Unmarshal(trimmed, &scans); err != nil {
			return nil, err
		}
		if scans == nil {
			scans = []Scan{}
		}
		return scans, nil
	case '{':
		var envelope struct {
			Results []Scan `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		if envelope.Results == nil {
			return []Scan{}, nil
		}
		return envelope.Results, nil
	default:
		return []Scan{}, nil
	}
}

// ScanQuery configures GET /scans/ requests. Nil filters are unset and never
// sent; Search is sent only when non-empty.
type ScanQuery struct {
	Search      string
	BodyPart    *string
	Diagnosis   *string
	Institution *string
}

// Values encodes the query parameters.
func (q ScanQuery) Values() url.Values {
	values := url.Values{}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.BodyPart != nil {
		values.Set("body_part", *q.BodyPart)
	}
	if q.Diagnosis != nil {
		values.Set("diagnosis", *q.Diagnosis)
	}
	if q.Institution != nil {
		values.Set("institution", *q.Institution)
	}
	return values
}

// ImageInfo describes a successfully probed image.
type ImageInfo struct {
	URL         string
	ContentType string
	Size        int64
}
