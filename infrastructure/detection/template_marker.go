//go:build detection

package detection

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"face-scenes/domain/detection"
)

// TemplateMarker implements detection.EventDetector using GoCV template
// matching. It reports one single-frame event for every frame in which the
// template image is found.
type TemplateMarker struct {
	config      markerConfig
	template    gocv.Mat
	scaled      gocv.Mat
	sourceWidth int
	ready       bool
}

// NewTemplateMarker loads the template. sourceWidth is the width of the video
// the template was cut from; frames arriving downscaled get a template scaled
// to match.
func NewTemplateMarker(templatePath string, sourceWidth int, opts ...MarkerOption) (*TemplateMarker, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return nil, fmt.Errorf("template file not found: %s", templatePath)
	}
	mat := gocv.IMRead(templatePath, gocv.IMReadGrayScale)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to load template: %s", templatePath)
	}
	return &TemplateMarker{
		config:      newMarkerConfig(templatePath, opts),
		template:    mat,
		scaled:      gocv.NewMat(),
		sourceWidth: sourceWidth,
	}, nil
}

// ProcessFrame implements detection.EventDetector
func (m *TemplateMarker) ProcessFrame(index int, frame image.Image) ([]detection.Event, error) {
	rgb, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame %d: %w", index, err)
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorBGRToGray)

	if !m.ready {
		if err := m.scaleTemplate(gray.Cols()); err != nil {
			return nil, err
		}
		m.ready = true
	}
	if m.scaled.Cols() > gray.Cols() || m.scaled.Rows() > gray.Rows() {
		return nil, fmt.Errorf("template %s is larger than the frame", m.config.label)
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(gray, m.scaled, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, _ := gocv.MinMaxLoc(result)

	if float64(maxVal) < m.config.threshold {
		return nil, nil
	}
	return []detection.Event{{StartFrame: index, EndFrame: index + 1, Label: m.config.label}}, nil
}

func (m *TemplateMarker) scaleTemplate(frameWidth int) error {
	if m.sourceWidth <= 0 || frameWidth == m.sourceWidth {
		m.template.CopyTo(&m.scaled)
		return nil
	}
	f := float64(frameWidth) / float64(m.sourceWidth)
	gocv.Resize(m.template, &m.scaled, image.Point{}, f, f, gocv.InterpolationArea)
	if m.scaled.Empty() {
		return fmt.Errorf("template %s vanished when scaled by %.3f", m.config.label, f)
	}
	return nil
}

// Close releases the template images
func (m *TemplateMarker) Close() error {
	if err := m.scaled.Close(); err != nil {
		return err
	}
	return m.template.Close()
}

// Ensure TemplateMarker implements detection.EventDetector
var _ detection.EventDetector = (*TemplateMarker)(nil)
