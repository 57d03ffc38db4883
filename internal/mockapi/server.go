// Package mockapi is an in-memory stand-in for the scan service used during
// development and in end-to-end tests. It follows the original backend's
// contract: newest scans first, exact filters on body_part, institution and
// diagnosis, case-insensitive search over description, diagnosis and tags,
// and field-keyed validation errors on create.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	dateLayout  = "2006-01-02"
	mediaPrefix = "/media/"

	maxUploadBytes = 32 << 20
)

// record is a stored scan. Tags hold whatever JSON the scan was created
// with: an array for seeded scans, a string for multipart uploads.
type record struct {
	ID          int             `json:"id"`
	PatientID   string          `json:"patient_id"`
	Image       string          `json:"image"`
	BodyPart    string          `json:"body_part"`
	ScanDate    string          `json:"scan_date"`
	Institution string          `json:"institution"`
	Description string          `json:"description"`
	Diagnosis   string          `json:"diagnosis"`
	Tags        json.RawMessage `json:"tags"`
}

// Options configures a Server.
type Options struct {
	MediaDir string // where uploads are written; required
	Envelope bool   // wrap lists as {"count","next","previous","results"}
	Logger   zerolog.Logger
}

// Server holds the scans and serves the API.
type Server struct {
	mu      sync.RWMutex
	records []record
	nextID  int

	mediaDir string
	envelope bool
	log      zerolog.Logger
}

// New builds an empty server.
func New(opts Options) (*Server, error) {
	if strings.TrimSpace(opts.MediaDir) == "" {
		return nil, fmt.Errorf("media dir required")
	}
	if err := os.MkdirAll(opts.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Server{
		nextID:   1,
		mediaDir: opts.MediaDir,
		envelope: opts.Envelope,
		log:      opts.Logger,
	}, nil
}

// Router returns the HTTP handler: the API under /api and uploads under /media.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/scans/", s.listScans)
	api.POST("/scans/", s.createScan)
	api.GET("/scans/:id/", s.getScan)

	r.Static(strings.TrimSuffix(mediaPrefix, "/"), s.mediaDir)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) listScans(c *gin.Context) {
	s.mu.RLock()
	matched := make([]record, 0, len(s.records))
	for _, r := range s.records {
		if matchesFilters(c, r) && matchesSearch(c.Query("search"), r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	// Newest first; ISO dates sort lexically.
	slices.SortStableFunc(matched, func(a, b record) int {
		return strings.Compare(b.ScanDate, a.ScanDate)
	})

	if !s.envelope {
		c.JSON(http.StatusOK, matched)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(matched),
		"next":     nil,
		"previous": nil,
		"results":  matched,
	})
}

// matchesFilters applies exact filters. An empty parameter is ignored, as
// django-filter does for filterset fields, so `?body_part=` lists everything.
func matchesFilters(c *gin.Context, r record) bool {
	filters := []struct {
		param string
		value string
	}{
		{"body_part", r.BodyPart},
		{"institution", r.Institution},
		{"diagnosis", r.Diagnosis},
	}
	for _, f := range filters {
		if want := c.Query(f.param); want != "" && want != f.value {
			return false
		}
	}
	return true
}

// matchesSearch requires every search term to appear, case-insensitively, in
// the description, the diagnosis or the stored tags.
func matchesSearch(search string, r record) bool {
	terms := strings.FieldsFunc(search, func(r rune) bool { return r == ' ' || r == ',' })
	if len(terms) == 0 {
		return true
	}
	haystack := []string{
		strings.ToLower(r.Description),
		strings.ToLower(r.Diagnosis),
		strings.ToLower(string(r.Tags)),
	}
	for _, term := range terms {
		term = strings.ToLower(term)
		found := false
		for _, h := range haystack {
			if strings.Contains(h, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Server) getScan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

var requiredFields = []string{"patient_id", "body_part", "scan_date", "institution", "description", "diagnosis", "tags"}

var allowedImageTypes = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".webp": {}, ".tif": {}, ".tiff": {},
}

// createScan accepts the multipart upload. Validation failures come back as
// 400 with a list of messages per field.
func (s *Server) createScan(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Multipart form parse error - " + err.Error()})
		return
	}

	fieldErrs := map[string][]string{}
	values := map[string]string{}
	for _, name := range requiredFields {
		v := strings.TrimSpace(c.PostForm(name))
		if v == "" {
			fieldErrs[name] = append(fieldErrs[name], "This field is required.")
			continue
		}
		values[name] = v
	}

	if v, ok := values["scan_date"]; ok {
		if _, err := time.Parse(dateLayout, v); err != nil {
			fieldErrs["scan_date"] = append(fieldErrs["scan_date"], "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
	}
	if v, ok := values["tags"]; ok && !json.Valid([]byte(v)) {
		fieldErrs["tags"] = append(fieldErrs["tags"], "Value must be valid JSON.")
	}
	if len(values["patient_id"]) > 50 {
		fieldErrs["patient_id"] = append(fieldErrs["patient_id"], "Ensure this field has no more than 50 characters.")
	}

	file, err := c.FormFile("image")
	switch {
	case err != nil:
		fieldErrs["image"] = append(fieldErrs["image"], "No file was submitted.")
	case !isAllowedImage(file.Filename):
		fieldErrs["image"] = append(fieldErrs["image"], "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	dst := filepath.Join(s.mediaDir, "xray_images", name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		s.log.Error().Err(err).Msg("create upload dir failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not store image."})
		return
	}
	if err := c.SaveUploadedFile(file, dst); err != nil {
		s.log.Error().Err(err).Str("path", dst).Msg("save upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not store image."})
		return
	}

	// Multipart tags arrive as text; store them as a JSON string the way a
	// JSON field does when given a string.
	rawTags, err := json.Marshal(values["tags"])
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not store tags."})
		return
	}

	s.mu.Lock()
	r := record{
		ID:          s.nextID,
		PatientID:   values["patient_id"],
		Image:       mediaPrefix + "xray_images/" + name,
		BodyPart:    values["body_part"],
		ScanDate:    values["scan_date"],
		Institution: values["institution"],
		Description: values["description"],
		Diagnosis:   values["diagnosis"],
		Tags:        rawTags,
	}
	s.nextID++
	s.records = append(s.records, r)
	s.mu.Unlock()

	s.log.Info().Int("id", r.ID).Str("patient_id", r.PatientID).Msg("scan created")
	c.JSON(http.StatusCreated, r)
}

func isAllowedImage(name string) bool {
	_, ok := allowedImageTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Len reports how many scans are stored.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
