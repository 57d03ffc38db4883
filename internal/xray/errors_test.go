package xray

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerError_PayloadShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		messages []string
	}{
		{"empty", "", nil},
		{"json string", `"Scan service unavailable"`, []string{"Scan service unavailable"}},
		{"detail", `{"detail":"Not found."}`, []string{"Not found."}},
		{"error key", `{"error":"invalid_multipart"}`, []string{"invalid_multipart"}},
		{
			"field lists",
			`{"patient_id":["This field is required."],"tags":["Value must be valid JSON.","Second."]}`,
			[]string{"patient_id: This field is required.", "tags: Value must be valid JSON.", "tags: Second."},
		},
		{"field string", `{"image":"Upload a valid image."}`, []string{"image: Upload a valid image."}},
		{"raw text", "<h1>Server Error (500)</h1>", []string{"<h1>Server Error (500)</h1>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := newServerError("/api/scans/", 400, []byte(tt.body))
			assert.Equal(t, tt.messages, se.Messages())
		})
	}
}

func TestServerError_ErrorIncludesStatusAndMessages(t *testing.T) {
	se := newServerError("/api/scans/", 400, []byte(`{"diagnosis":["Required."]}`))
	assert.Equal(t, "api /api/scans/ returned status 400: diagnosis: Required.", se.Error())
}

func TestUserMessages(t *testing.T) {
	assert.Nil(t, UserMessages(nil))

	verr := UploadForm{}.Validate()
	require.Error(t, verr)
	lines := UserMessages(fmt.Errorf("submit: %w", verr))
	assert.Equal(t, "Patient ID is required.", lines[0])
	assert.Contains(t, lines, "Image file is required.")

	se := &ServerError{Path: "/api/scans/", StatusCode: 502}
	assert.Equal(t, []string{"Server returned status 502."}, UserMessages(se))

	ne := &NetworkError{Op: "execute request", Err: errors.New("connection refused")}
	assert.Equal(t, []string{"Could not reach the scan service: connection refused"}, UserMessages(ne))

	assert.Equal(t, []string{"boom"}, UserMessages(errors.New("boom")))
}

func TestValidationErrors_For(t *testing.T) {
	err := UploadForm{PatientID: "x", ScanDate: "01/02/2024"}.Validate()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Empty(t, verrs.For(FieldPatientID))
	assert.Equal(t, "Body part is required.", verrs.For(FieldBodyPart))
	assert.Equal(t, "Scan date must be YYYY-MM-DD.", verrs.For(FieldScanDate))
}

func TestServerError_LongTextKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("é", 150) + strings.Repeat("ü", 150)
	se := newServerError("/api/scans/", 502, []byte(body))

	require.True(t, utf8.ValidString(se.Message))
	assert.Equal(t, 201, utf8.RuneCountInString(se.Message))
	assert.True(t, strings.HasSuffix(se.Message, "ü…"))
}
