// Package certificates renders completion certificates for passed,
// fully-graded courses. Callers are responsible for enforcing the issue
// preconditions before asking for a render.
package certificates

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

const (
	certWidth  = 1400
	certHeight = 990
)

// Certificate is the data printed onto one certificate.
type Certificate struct {
	LearnerName  string
	CourseTitle  string
	CourseCode   string
	OverallScore int
	CompletedAt  time.Time
	// SerialID is the snapshot key the certificate was issued from; printed
	// small so a transcript check can trace it back.
	SerialID string
}

type Renderer interface {
	Render(cert Certificate) ([]byte, error)
}

type renderer struct {
	log     *logger.Logger
	metrics *observability.Metrics

	titleFace font.Face
	nameFace  font.Face
	bodyFace  font.Face
	smallFace font.Face
}

func NewRenderer(baseLog *logger.Logger, metrics *observability.Metrics) (Renderer, error) {
	rendererLog := baseLog.With("service", "CertificateRenderer")

	fontPath := os.Getenv("CERTIFICATE_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("env var CERTIFICATE_FONT is empty")
	}
	rendererLog.Info("loading certificate font", "font", fontPath)

	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}

	newFace := func(size float64) font.Face {
		return truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}

	return &renderer{
		log:       rendererLog,
		metrics:   metrics,
		titleFace: newFace(54),
		nameFace:  newFace(72),
		bodyFace:  newFace(30),
		smallFace: newFace(18),
	}, nil
}

func (r *renderer) Render(cert Certificate) ([]byte, error) {
	raw, err := r.render(cert)
	if err != nil {
		r.metrics.IncCertificateRendered("error")
		return nil, err
	}
	r.metrics.IncCertificateRendered("success")
	return raw, nil
}

func (r *renderer) render(cert Certificate) ([]byte, error) {
	learnerName := strings.TrimSpace(cert.LearnerName)
	if learnerName == "" {
		return nil, fmt.Errorf("learner name required")
	}
	courseTitle := strings.TrimSpace(cert.CourseTitle)
	if courseTitle == "" {
		return nil, fmt.Errorf("course title required")
	}

	dc := gg.NewContext(certWidth, certHeight)

	// Parchment bg
	dc.SetColor(color.NRGBA{R: 0xFB, G: 0xF9, B: 0xF2, A: 0xFF})
	dc.DrawRectangle(0, 0, certWidth, certHeight)
	dc.Fill()

	// Double border
	ink := color.NRGBA{R: 0x1F, G: 0x32, B: 0x4A, A: 0xFF}
	dc.SetColor(ink)
	dc.SetLineWidth(6)
	dc.DrawRectangle(40, 40, certWidth-80, certHeight-80)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(58, 58, certWidth-116, certHeight-116)
	dc.Stroke()

	cx := float64(certWidth) / 2

	dc.SetColor(ink)
	dc.SetFontFace(r.titleFace)
	drawCentered(dc, "Certificate of Completion", cx, 190)

	dc.SetFontFace(r.bodyFace)
	drawCentered(dc, "This certifies that", cx, 300)

	dc.SetFontFace(r.nameFace)
	drawCentered(dc, learnerName, cx, 410)

	// Rule under the name
	nw, _ := dc.MeasureString(learnerName)
	dc.SetLineWidth(2)
	dc.DrawLine(cx-nw/2, 440, cx+nw/2, 440)
	dc.Stroke()

	dc.SetFontFace(r.bodyFace)
	drawCentered(dc, "has successfully completed all modules of", cx, 520)

	course := courseTitle
	if code := strings.TrimSpace(cert.CourseCode); code != "" {
		course = fmt.Sprintf("%s  (%s)", courseTitle, code)
	}
	drawCentered(dc, course, cx, 580)

	drawCentered(dc, fmt.Sprintf("Final grade: %d / 100", cert.OverallScore), cx, 660)

	completedAt := cert.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	drawCentered(dc, completedAt.UTC().Format("January 2, 2006"), cx, 740)

	if serial := strings.TrimSpace(cert.SerialID); serial != "" {
		dc.SetFontFace(r.smallFace)
		drawCentered(dc, "Certificate no. "+serial, cx, certHeight-100)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCentered(dc *gg.Context, s string, cx, baseline float64) {
	tw, _ := dc.MeasureString(s)
	dc.DrawString(s, cx-tw/2, baseline)
}
