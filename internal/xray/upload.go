package xray

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadForm holds the fields of a new scan. Tags is the raw comma separated
// input; ImagePath points at the file to send.
type UploadForm struct {
	PatientID   string
	BodyPart    string
	ScanDate    string
	Institution string
	Description string
	Diagnosis   string
	Tags        string
	ImagePath   string
}

// Form field names as the API expects them.
const (
	FieldPatientID   = "patient_id"
	FieldBodyPart    = "body_part"
	FieldScanDate    = "scan_date"
	FieldInstitution = "institution"
	FieldDescription = "description"
	FieldDiagnosis   = "diagnosis"
	FieldTags        = "tags"
	FieldImage       = "image"
)

var requiredFields = []struct {
	name    string
	message string
	value   func(UploadForm) string
}{
	{FieldPatientID, "Patient ID is required.", func(f UploadForm) string { return f.PatientID }},
	{FieldBodyPart, "Body part is required.", func(f UploadForm) string { return f.BodyPart }},
	{FieldScanDate, "Scan date is required.", func(f UploadForm) string { return f.ScanDate }},
	{FieldInstitution, "Institution is required.", func(f UploadForm) string { return f.Institution }},
	{FieldDescription, "Description is required.", func(f UploadForm) string { return f.Description }},
	{FieldDiagnosis, "Diagnosis is required.", func(f UploadForm) string { return f.Diagnosis }},
	{FieldImage, "Image file is required.", func(f UploadForm) string { return f.ImagePath }},
}

// Validate runs the client-side checks. It returns ValidationErrors in form
// order, or nil.
func (f UploadForm) Validate() error {
	var errs ValidationErrors
	for _, rf := range requiredFields {
		if strings.TrimSpace(rf.value(f)) == "" {
			errs = append(errs, &ValidationError{Field: rf.name, Message: rf.message})
		}
	}
	if date := strings.TrimSpace(f.ScanDate); date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			errs = append(errs, &ValidationError{Field: FieldScanDate, Message: "Scan date must be YYYY-MM-DD."})
		}
	}
	if path := strings.TrimSpace(f.ImagePath); path != "" {
		info, err := os.Stat(expandHome(path))
		if err != nil || info.IsDir() {
			errs = append(errs, &ValidationError{Field: FieldImage, Message: "Image file not found."})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// TagsJSON returns the tags as the JSON array string the API expects.
func (f UploadForm) TagsJSON() string {
	tags := SplitTags(f.Tags)
	data, err := json.Marshal([]string(tags))
	if err != nil {
		return "[]"
	}
	return string(data)
}

// encode writes the multipart body and returns its content type.
func (f UploadForm) encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := []struct{ name, value string }{
		{FieldPatientID, f.PatientID},
		{FieldBodyPart, f.BodyPart},
		{FieldScanDate, f.ScanDate},
		{FieldInstitution, f.Institution},
		{FieldDescription, f.Description},
		{FieldDiagnosis, f.Diagnosis},
	}
	for _, field := range fields {
		if err := w.WriteField(field.name, strings.TrimSpace(field.value)); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", field.name, err)
		}
	}
	if err := w.WriteField(FieldTags, f.TagsJSON()); err != nil {
		return nil, "", fmt.Errorf("write field tags: %w", err)
	}

	path := expandHome(strings.TrimSpace(f.ImagePath))
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(path)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldImage, name))
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// IsValidation reports whether err came from client-side validation.
func IsValidation(err error) bool {
	var verrs ValidationErrors
	return errors.As(err, &verrs)
}
