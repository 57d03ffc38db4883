package xray

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanID_AcceptsNumbersAndStrings(t *testing.T) {
	var scans []Scan
	require.NoError(t, json.Unmarshal([]byte(`[{"id":12},{"id":"a-b"},{"id":null}]`), &scans))
	assert.Equal(t, ScanID("12"), scans[0].ID)
	assert.Equal(t, ScanID("a-b"), scans[1].ID)
	assert.Equal(t, ScanID(""), scans[2].ID)
}

func TestTags_Shapes(t *testing.T) {
	tests := []struct {
		raw  string
		want Tags
	}{
		{`["lung","opacity"]`, Tags{"lung", "opacity"}},
		{`"[\"fracture\"]"`, Tags{"fracture"}},
		{`"lung, infection ,,"`, Tags{"lung", "infection"}},
		{`null`, nil},
	}
	for _, tt := range tests {
		var tags Tags
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &tags), tt.raw)
		assert.Equal(t, tt.want, tags, tt.raw)
	}
}

func TestParseDate(t *testing.T) {
	d := ParseDate("2024-02-29")
	assert.False(t, d.IsZero())
	assert.Equal(t, time.February, d.Time.Month())
	assert.Equal(t, "2024-02-29", d.String())

	d = ParseDate("2024-02-29T10:11:12Z")
	assert.Equal(t, "2024-02-29", d.String())

	d = ParseDate("last tuesday")
	assert.True(t, d.IsZero())
	assert.Equal(t, "last tuesday", d.String())

	out, err := json.Marshal(ParseDate("2023-01-05"))
	require.NoError(t, err)
	assert.JSONEq(t, `"2023-01-05"`, string(out))
}

func TestScanQuery_ValuesSkipsUnset(t *testing.T) {
	empty := ""
	values := ScanQuery{Institution: &empty}.Values()
	assert.Equal(t, "institution=", values.Encode())

	assert.Empty(t, ScanQuery{}.Values().Encode())
}

func TestUploadForm_TagsJSON(t *testing.T) {
	assert.Equal(t, `[]`, UploadForm{}.TagsJSON())
	assert.Equal(t, `["a","b c"]`, UploadForm{Tags: " a ,b c, "}.TagsJSON())
}

func TestUploadForm_ValidateChecksImagePath(t *testing.T) {
	dir := t.TempDir()
	form := UploadForm{
		PatientID: "p", BodyPart: "b", ScanDate: "2024-01-01", Institution: "i",
		Description: "d", Diagnosis: "x", ImagePath: filepath.Join(dir, "missing.png"),
	}
	err := form.Validate()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Image file not found.", verrs.For(FieldImage))

	form.ImagePath = filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(form.ImagePath, pngHeader, 0o600))
	assert.NoError(t, form.Validate())
}
