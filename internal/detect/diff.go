// Package detect implements the cheap numeric change signal: mean absolute
// grayscale difference between two frames against a fixed threshold.
package detect

import (
	"fmt"

	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/rs/zerolog"
)

// DefaultThreshold is the change threshold on the 8-bit intensity scale.
const DefaultThreshold = 30.0

// Detector compares consecutive frames for abrupt visual change.
type Detector struct {
	logger    zerolog.Logger
	threshold float64
}

// New creates a detector with the given threshold. A non-positive threshold
// falls back to DefaultThreshold.
func New(logger zerolog.Logger, threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		logger:    logger.With().Str("component", "frame-diff").Logger(),
		threshold: threshold,
	}
}

// Threshold returns the configured change threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Changed reports whether the two frames differ enough to indicate a scene
// change. A frame that cannot be scored is treated as "no change" and
// logged; scoring problems never abort the pipeline.
func (d *Detector) Changed(a, b *ffmpeg.Frame) bool {
	score, err := Score(a, b)
	if err != nil {
		d.logger.Warn().Err(err).Msg("frame comparison failed, assuming no change")
		return false
	}
	return score > d.threshold
}

// Score computes the mean absolute grayscale difference between two frames.
// Both frames are reduced to a single intensity channel using Rec.601 luma
// weights before differencing.
func Score(a, b *ffmpeg.Frame) (float64, error) {
	if a == nil || b == nil {
		return 0, fmt.Errorf("nil frame")
	}
	if a.Width != b.Width || a.Height != b.Height {
		return 0, fmt.Errorf("frame dimensions differ: %dx%d vs %dx%d",
			a.Width, a.Height, b.Width, b.Height)
	}
	n := a.Width * a.Height * 3
	if len(a.Pix) < n || len(b.Pix) < n {
		return 0, fmt.Errorf("truncated frame data at index %d/%d", a.Index, b.Index)
	}
	if n == 0 {
		return 0, fmt.Errorf("empty frame")
	}

	var total float64
	for i := 0; i < n; i += 3 {
		ga := luma(a.Pix[i], a.Pix[i+1], a.Pix[i+2])
		gb := luma(b.Pix[i], b.Pix[i+1], b.Pix[i+2])
		diff := ga - gb
		if diff < 0 {
			diff = -diff
		}
		total += diff
	}
	return total / float64(a.Width*a.Height), nil
}

// luma converts an RGB pixel to Rec.601 grayscale intensity.
func luma(r, g, b byte) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
