package detection

import (
	"path/filepath"
	"strings"
)

// DefaultMarkerThreshold is the normalised correlation above which a template counts as visible
const DefaultMarkerThreshold = 0.85

// MarkerOption configures a TemplateMarker
type MarkerOption func(*markerConfig)

type markerConfig struct {
	threshold float64
	label     string
}

// WithMarkerThreshold sets the match score a frame must reach
func WithMarkerThreshold(threshold float64) MarkerOption {
	return func(c *markerConfig) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// WithMarkerLabel overrides the event label, which defaults to the template file name
func WithMarkerLabel(label string) MarkerOption {
	return func(c *markerConfig) {
		c.label = label
	}
}

func newMarkerConfig(templatePath string, opts []MarkerOption) markerConfig {
	c := markerConfig{
		threshold: DefaultMarkerThreshold,
		label:     strings.TrimSuffix(filepath.Base(templatePath), filepath.Ext(templatePath)),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
