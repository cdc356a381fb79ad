package certificates

import (
	"bytes"
	"image/png"
	"os"
	"testing"
	"time"

	repotest "github.com/northcampus/gradebook-backend/internal/data/repos/testutil"
)

func TestNewRendererRequiresFont(t *testing.T) {
	t.Setenv("CERTIFICATE_FONT", "")
	if _, err := NewRenderer(repotest.Logger(t), nil); err == nil {
		t.Fatal("expected an error without CERTIFICATE_FONT")
	}
}

func TestRenderRejectsIncompleteData(t *testing.T) {
	r := &renderer{}
	if _, err := r.render(Certificate{CourseTitle: "Field Biology"}); err == nil {
		t.Fatal("expected an error without a learner name")
	}
	if _, err := r.render(Certificate{LearnerName: "Ada Volkov"}); err == nil {
		t.Fatal("expected an error without a course title")
	}
}

// TestRenderProducesPNG needs a TTF on disk; point CERTIFICATE_FONT at one
// to run it.
func TestRenderProducesPNG(t *testing.T) {
	if os.Getenv("CERTIFICATE_FONT") == "" {
		t.Skip("CERTIFICATE_FONT not set; skipping render test")
	}
	r, err := NewRenderer(repotest.Logger(t), nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	raw, err := r.Render(Certificate{
		LearnerName:  "Ada Volkov",
		CourseTitle:  "Field Biology",
		CourseCode:   "BIO-201",
		OverallScore: 91,
		CompletedAt:  time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		SerialID:     "learner_course",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != certWidth || b.Dy() != certHeight {
		t.Fatalf("dimensions: want=%dx%d got=%dx%d", certWidth, certHeight, b.Dx(), b.Dy())
	}
}
