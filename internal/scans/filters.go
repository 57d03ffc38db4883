package scans

import "github.com/five82/xrayview/internal/xray"

// Field names one of the equality filters.
type Field int

const (
	BodyPart Field = iota
	Diagnosis
	Institution
)

// Fields lists the equality filters in display order.
var Fields = []Field{BodyPart, Diagnosis, Institution}

func (f Field) String() string {
	switch f {
	case BodyPart:
		return "body_part"
	case Diagnosis:
		return "diagnosis"
	case Institution:
		return "institution"
	default:
		return "unknown"
	}
}

// Label is the human name of the field.
func (f Field) Label() string {
	switch f {
	case BodyPart:
		return "Body part"
	case Diagnosis:
		return "Diagnosis"
	case Institution:
		return "Institution"
	default:
		return "Unknown"
	}
}

// FilterState is the current search text plus the three optional equality
// filters. A nil filter is unset; a pointer to "" filters on the empty value.
// The zero value means "no filtering".
type FilterState struct {
	Search      string
	BodyPart    *string
	Diagnosis   *string
	Institution *string
}

// Query converts the state into request parameters.
func (f FilterState) Query() xray.ScanQuery {
	return xray.ScanQuery{
		Search:      f.Search,
		BodyPart:    f.BodyPart,
		Diagnosis:   f.Diagnosis,
		Institution: f.Institution,
	}
}

// IsEmpty reports whether nothing is filtered.
func (f FilterState) IsEmpty() bool {
	return f.Search == "" && f.BodyPart == nil && f.Diagnosis == nil && f.Institution == nil
}

// Get returns the value of an equality filter and whether it is set.
func (f FilterState) Get(field Field) (string, bool) {
	p := f.ptr(field)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// With returns a copy with field set to value.
func (f FilterState) With(field Field, value string) FilterState {
	if p := f.ptr(field); p != nil {
		v := value
		*p = &v
	}
	return f
}

// Without returns a copy with field unset.
func (f FilterState) Without(field Field) FilterState {
	if p := f.ptr(field); p != nil {
		*p = nil
	}
	return f
}

// WithSearch returns a copy with the search text replaced.
func (f FilterState) WithSearch(search string) FilterState {
	f.Search = search
	return f
}

func (f *FilterState) ptr(field Field) **string {
	switch field {
	case BodyPart:
		return &f.BodyPart
	case Diagnosis:
		return &f.Diagnosis
	case Institution:
		return &f.Institution
	default:
		return nil
	}
}
