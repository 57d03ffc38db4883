package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/xrayview/internal/imageguard"
	"github.com/five82/xrayview/internal/xray"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	opts.MediaDir = t.TempDir()
	opts.Logger = zerolog.Nop()
	s, err := New(opts)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func put(t *testing.T, s *Server, records ...record) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.nextID = len(s.records) + 1
}

func tagsJSON(tags ...string) json.RawMessage {
	data, _ := json.Marshal(tags)
	return data
}

func getJSON(t *testing.T, rawURL string, v any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestListOrdersNewestFirstAndFilters(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	put(t, s,
		record{ID: 1, BodyPart: "Chest", ScanDate: "2023-01-10", Diagnosis: "Normal", Tags: tagsJSON("clear")},
		record{ID: 2, BodyPart: "Hand", ScanDate: "2024-05-01", Diagnosis: "Fracture", Tags: tagsJSON("bone")},
		record{ID: 3, BodyPart: "Chest", ScanDate: "2023-11-30", Diagnosis: "Pneumonia", Description: "Left lobe", Tags: tagsJSON("lung", "opacity")},
		record{ID: 4, BodyPart: "", ScanDate: "2022-02-02", Diagnosis: "Normal"},
	)

	var all []record
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/scans/", &all))
	ids := []int{}
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{2, 3, 1, 4}, ids)

	var chest []record
	getJSON(t, ts.URL+"/api/scans/?body_part=Chest", &chest)
	require.Len(t, chest, 2)
	assert.Equal(t, 3, chest[0].ID)

	var blank []record
	getJSON(t, ts.URL+"/api/scans/?body_part=&diagnosis=Normal", &blank)
	require.Len(t, blank, 2, "empty filter values are ignored")
	assert.Equal(t, 1, blank[0].ID)

	var none []record
	getJSON(t, ts.URL+"/api/scans/?body_part=Chest&diagnosis=Fracture", &none)
	assert.Empty(t, none)
}

func TestListSearchesDescriptionDiagnosisAndTags(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	put(t, s,
		record{ID: 1, Diagnosis: "Pneumonia", Description: "Left lobe", ScanDate: "2024-01-01", Tags: tagsJSON("lung")},
		record{ID: 2, Diagnosis: "Fracture", Description: "Distal radius", ScanDate: "2024-01-02", Tags: tagsJSON("bone")},
	)

	cases := map[string][]int{
		"lobe":      {1},
		"FRACTURE":  {2},
		"bone":      {2},
		"lung left": {1},
		"lung bone": {},
		"   ":       {2, 1},
	}
	for search, want := range cases {
		var got []record
		getJSON(t, ts.URL+"/api/scans/?search="+url.QueryEscape(search), &got)
		ids := []int{}
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, want, ids, "search %q", search)
	}
}

func TestEnvelopeList(t *testing.T) {
	s, ts := newTestServer(t, Options{Envelope: true})
	put(t, s, record{ID: 1, ScanDate: "2024-01-01"})

	var body struct {
		Count   int      `json:"count"`
		Results []record `json:"results"`
	}
	getJSON(t, ts.URL+"/api/scans/", &body)
	assert.Equal(t, 1, body.Count)
	assert.Len(t, body.Results, 1)
}

func TestGetScanNotFound(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	var body map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/scans/99/", &body))
	assert.Equal(t, "Not found.", body["detail"])
}

func TestCreateRequiresMultipart(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, err := http.PostForm(ts.URL+"/api/scans/", url.Values{"patient_id": {"P1"}, "tags": {"not json"}, "scan_date": {"01/02/2024"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSeedIsDeterministicAndServesImages(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	require.NoError(t, s.Seed(15, 42))
	assert.Equal(t, 15, s.Len())

	var list []record
	getJSON(t, ts.URL+"/api/scans/", &list)
	require.Len(t, list, 15)

	var withImage, without, broken int
	for _, r := range list {
		switch {
		case r.Image == "":
			without++
		case strings.Contains(r.Image, "missing-"):
			broken++
		default:
			withImage++
			assert.Contains(t, diagnosesByPart[r.BodyPart], r.Diagnosis)
		}
	}
	assert.Equal(t, 2, without)
	assert.Equal(t, 1, broken)
	assert.Equal(t, 12, withImage)

	other, _ := newTestServer(t, Options{})
	require.NoError(t, other.Seed(15, 42))
	for i := range s.records {
		assert.Equal(t, s.records[i].ScanDate, other.records[i].ScanDate)
		assert.Equal(t, s.records[i].Diagnosis, other.records[i].Diagnosis)
	}
}

// The rest exercise the real client against the mock end to end.

func newClient(t *testing.T, ts *httptest.Server) *xray.Client {
	t.Helper()
	c, err := xray.NewClient(ts.URL+"/api", xray.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return c
}

func TestClientRoundTrip(t *testing.T) {
	s, ts := newTestServer(t, Options{Envelope: true})
	require.NoError(t, s.Seed(11, 7))
	client := newClient(t, ts)
	ctx := context.Background()

	imagePath := filepath.Join(t.TempDir(), "knee.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))

	created, err := client.CreateScan(ctx, xray.UploadForm{
		PatientID:   "P-777",
		BodyPart:    "Knee",
		ScanDate:    "2099-01-01",
		Institution: "General Hospital",
		Description: "Skyline view",
		Diagnosis:   "Torn Meniscus",
		Tags:        "knee, sports injury",
		ImagePath:   imagePath,
	})
	require.NoError(t, err)
	assert.Equal(t, xray.ScanID("12"), created.ID)
	assert.Equal(t, xray.Tags{"knee", "sports injury"}, created.Tags)

	list, err := client.ListScans(ctx, xray.ScanQuery{})
	require.NoError(t, err)
	require.Len(t, list, 12)
	assert.Equal(t, created.ID, list[0].ID, "newest scan first")

	search, err := client.ListScans(ctx, xray.ScanQuery{Search: "sports"})
	require.NoError(t, err)
	require.Len(t, search, 1)

	got, err := client.GetScan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Skyline view", got.Description)

	u, ok := imageguard.Resolve(got.Image, ts.URL)
	require.True(t, ok)
	info, err := client.ProbeImage(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)

	for _, scan := range list {
		if !strings.Contains(scan.Image, "missing-") {
			continue
		}
		u, _ := imageguard.Resolve(scan.Image, ts.URL)
		_, err := client.ProbeImage(ctx, u)
		assert.ErrorIs(t, err, xray.ErrImageUnavailable)
	}
}

func TestClientSeesServerFieldErrors(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	client := newClient(t, ts)

	imagePath := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(imagePath, []byte("hello"), 0o600))

	_, err := client.CreateScan(context.Background(), xray.UploadForm{
		PatientID:   strings.Repeat("x", 60),
		BodyPart:    "Arm",
		ScanDate:    "2024-01-01",
		Institution: "General Hospital",
		Description: "AP view",
		Diagnosis:   "Normal",
		ImagePath:   imagePath,
	})
	var se *xray.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Fields, "patient_id")
	assert.Contains(t, se.Fields, "image")
}
