package xray

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// NetworkError reports a request that never completed.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx response. Message holds a plain payload;
// Fields holds a field-keyed payload.
type ServerError struct {
	Path       string
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
	if lines := e.Messages(); len(lines) > 0 {
		msg += ": " + strings.Join(lines, "; ")
	}
	return msg
}

// Messages renders the payload as user-facing lines, one per field message.
func (e *ServerError) Messages() []string {
	var lines []string
	if e.Message != "" {
		lines = append(lines, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, msg := range e.Fields[k] {
			lines = append(lines, k+": "+msg)
		}
	}
	return lines
}

// newServerError parses a DRF style error body: a JSON string, an object
// with detail/error, a field-keyed object of strings or string lists, or raw text.
func newServerError(path string, status int, body []byte) *ServerError {
	se := &ServerError{Path: path, StatusCode: status}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return se
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		se.Message = strings.TrimSpace(text)
		return se
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		se.Message = truncateBody(string(trimmed))
		return se
	}
	for _, k := range []string{"detail", "error"} {
		if raw, ok := obj[k]; ok {
			if msgs := rawMessages(raw); len(msgs) > 0 {
				se.Message = strings.Join(msgs, " ")
				delete(obj, k)
			}
		}
	}
	for field, raw := range obj {
		msgs := rawMessages(raw)
		if len(msgs) == 0 {
			continue
		}
		if se.Fields == nil {
			se.Fields = make(map[string][]string)
		}
		se.Fields[field] = msgs
	}
	return se
}

func rawMessages(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
		return nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if text := strings.TrimSpace(fmt.Sprint(v)); text != "" {
				out = append(out, text)
			}
		}
		return out
	}
	if text := strings.TrimSpace(string(raw)); text != "" && text != "null" {
		return []string{text}
	}
	return nil
}

// truncateBody shortens a plain-text payload to 200 runes.
func truncateBody(s string) string {
	s = strings.TrimSpace(s)
	const limit = 200
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "…"
}

// ValidationError is a client-side check that failed before any request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidationErrors collects every failed check of a form.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, " ")
}

// For returns the message recorded for field, if any.
func (v ValidationErrors) For(field string) string {
	for _, e := range v {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// ErrResponseTooLarge is wrapped when a response body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response too large")

// ErrImageUnavailable is wrapped by image probe failures.
var ErrImageUnavailable = errors.New("image unavailable")

// UserMessages flattens any client error into lines suitable for display.
func UserMessages(err error) []string {
	if err == nil {
		return nil
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]string, 0, len(verrs))
		for _, e := range verrs {
			out = append(out, e.Message)
		}
		return out
	}
	var se *ServerError
	if errors.As(err, &se) {
		lines := se.Messages()
		if len(lines) == 0 {
			lines = []string{fmt.Sprintf("Server returned status %d.", se.StatusCode)}
		}
		return lines
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return []string{"Could not reach the scan service: " + ne.Err.Error()}
	}
	return []string{err.Error()}
}
