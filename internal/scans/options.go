package scans

import "github.com/five82/xrayview/internal/xray"

// FilterOption is one selectable filter value. Value and Label are the same
// string; the API offers no separate display name.
type FilterOption struct {
	Value string
	Label string
}

// FilterOptions holds the distinct values per filterable field.
type FilterOptions struct {
	BodyParts    []FilterOption
	Diagnoses    []FilterOption
	Institutions []FilterOption
}

// For returns the options for field.
func (o FilterOptions) For(field Field) []FilterOption {
	switch field {
	case BodyPart:
		return o.BodyParts
	case Diagnosis:
		return o.Diagnoses
	case Institution:
		return o.Institutions
	default:
		return nil
	}
}

func (o FilterOptions) clone() FilterOptions {
	return FilterOptions{
		BodyParts:    append([]FilterOption(nil), o.BodyParts...),
		Diagnoses:    append([]FilterOption(nil), o.Diagnoses...),
		Institutions: append([]FilterOption(nil), o.Institutions...),
	}
}

// DeriveOptions collects the distinct body parts, diagnoses and institutions
// in first-seen order. Empty values are kept as their own option.
func DeriveOptions(scans []xray.Scan) FilterOptions {
	return FilterOptions{
		BodyParts:    distinct(scans, func(s xray.Scan) string { return s.BodyPart }),
		Diagnoses:    distinct(scans, func(s xray.Scan) string { return s.Diagnosis }),
		Institutions: distinct(scans, func(s xray.Scan) string { return s.Institution }),
	}
}

func distinct(scans []xray.Scan, value func(xray.Scan) string) []FilterOption {
	seen := make(map[string]struct{}, len(scans))
	var out []FilterOption
	for _, s := range scans {
		v := value(s)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, FilterOption{Value: v, Label: v})
	}
	return out
}
