package detection

import "testing"

func TestNewMarkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		opts      []MarkerOption
		label     string
		threshold float64
	}{
		{"defaults", "/markers/title_card.png", nil, "title_card", DefaultMarkerThreshold},
		{"threshold", "logo.png", []MarkerOption{WithMarkerThreshold(0.6)}, "logo", 0.6},
		{"zero threshold keeps default", "logo.png", []MarkerOption{WithMarkerThreshold(0)}, "logo", DefaultMarkerThreshold},
		{"label", "logo.png", []MarkerOption{WithMarkerLabel("studio")}, "studio", DefaultMarkerThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMarkerConfig(tt.path, tt.opts)
			if c.label != tt.label || c.threshold != tt.threshold {
				t.Errorf("got label %q threshold %g, want %q %g", c.label, c.threshold, tt.label, tt.threshold)
			}
		})
	}
}
