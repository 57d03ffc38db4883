package mockapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var bodyParts = []string{"Chest", "Knee", "Arm", "Hand", "Spine", "Hip", "Shoulder"}

var diagnosesByPart = map[string][]string{
	"Chest":    {"Pneumonia", "Normal", "Pleural Effusion", "Tuberculosis", "Lung Nodule"},
	"Knee":     {"Normal", "Arthritis", "Fracture", "Torn Meniscus"},
	"Arm":      {"Fracture", "Normal", "Dislocation"},
	"Hand":     {"Fracture", "Normal", "Arthritis"},
	"Spine":    {"Normal", "Disc Herniation", "Scoliosis", "Fracture"},
	"Hip":      {"Normal", "Hip Dysplasia", "Fracture", "Arthritis"},
	"Shoulder": {"Normal", "Dislocation", "Rotator Cuff Tear", "Fracture"},
}

var tagsByDiagnosis = map[string][]string{
	"Pneumonia":        {"lung", "infection", "opacity", "consolidation"},
	"Fracture":         {"fracture", "bone", "break"},
	"Normal":           {"normal", "clear"},
	"Pleural Effusion": {"fluid", "lung", "pleural"},
	"Arthritis":        {"joint", "arthritis", "inflammation"},
}

var tagPool = []string{"lung", "infection", "fracture", "opacity", "fluid", "pneumonia", "normal", "consolidation"}

var institutions = []string{"General Hospital", "St. Mary Clinic", "City Imaging Center", "Northside Radiology"}

// seedEpoch anchors seeded scan dates so a given seed always yields the same data.
var seedEpoch = time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

// Seed replaces the stored scans with n generated ones. Every seventh scan has
// no image and every eleventh points at a file that does not exist, so
// clients see all image states.
func (s *Server) Seed(n int, seed uint64) error {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	sample, err := s.writeSampleImage()
	if err != nil {
		return err
	}

	records := make([]record, 0, n)
	for i := range n {
		part := bodyParts[rnd.IntN(len(bodyParts))]
		options := diagnosesByPart[part]
		diagnosis := options[rnd.IntN(len(options))]

		pool, ok := tagsByDiagnosis[diagnosis]
		if !ok {
			pool = tagPool
		}
		tags := pickTags(rnd, pool, 3)
		rawTags, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}

		img := sample
		switch {
		case (i+1)%7 == 0:
			img = ""
		case (i+1)%11 == 0:
			img = mediaPrefix + "xray_images/missing-" + uuid.NewString() + ".png"
		}

		records = append(records, record{
			ID:          i + 1,
			PatientID:   fmt.Sprintf("P%05d", i+1),
			Image:       img,
			BodyPart:    part,
			ScanDate:    seedEpoch.AddDate(0, 0, -rnd.IntN(730)).Format(dateLayout),
			Institution: institutions[rnd.IntN(len(institutions))],
			Description: fmt.Sprintf("%s X-ray, %s view.", part, []string{"frontal", "lateral", "oblique"}[rnd.IntN(3)]),
			Diagnosis:   diagnosis,
			Tags:        rawTags,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.nextID = n + 1
	return nil
}

func pickTags(rnd *rand.Rand, pool []string, n int) []string {
	shuffled := append([]string(nil), pool...)
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:min(n, len(shuffled))]
}

// writeSampleImage stores a small grayscale PNG in the media directory and
// returns its media path.
func (s *Server) writeSampleImage() (string, error) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 8)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode sample image: %w", err)
	}

	name := "sample-" + uuid.NewString() + ".png"
	dir := filepath.Join(s.mediaDir, "xray_images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write sample image: %w", err)
	}
	return mediaPrefix + "xray_images/" + name, nil
}
