// Package analyze merges the oracle's semantic verdicts with the frame-diff
// detector's pairwise verdicts into a single ordered boundary set per batch.
package analyze

import (
	"context"
	"fmt"
	"sort"

	"github.com/echohive42/video-scene-splitter/internal/detect"
	"github.com/echohive42/video-scene-splitter/internal/oracle"
	"github.com/echohive42/video-scene-splitter/internal/sampler"
	"github.com/rs/zerolog"
)

// Analyzer produces scene-boundary positions for one batch at a time. The
// oracle supplies semantic judgment, the detector catches abrupt visual
// breaks; their union favors recall over precision. The analyzer itself
// never fails a run: oracle trouble degrades the batch to detector
// verdicts alone.
type Analyzer struct {
	logger   zerolog.Logger
	oracle   oracle.Client // nil when the oracle is disabled
	detector *detect.Detector
}

// New creates an analyzer. Pass a nil oracle client to run on frame-diff
// verdicts only.
func New(logger zerolog.Logger, client oracle.Client, detector *detect.Detector) *Analyzer {
	return &Analyzer{
		logger:   logger.With().Str("component", "analyzer").Logger(),
		oracle:   client,
		detector: detector,
	}
}

// Analyze inspects a full batch: one oracle call, pairwise frame-diff
// verdicts, and a union merge. Returns the deduplicated ascending
// batch-local boundary positions and a rationale string.
func (a *Analyzer) Analyze(ctx context.Context, batch *sampler.Batch) ([]int, string) {
	var oraclePositions []int
	degraded := ""

	switch {
	case a.oracle == nil:
		degraded = "oracle disabled"
	default:
		result, err := a.oracle.Classify(ctx, batch.ImagePaths())
		switch {
		case err != nil:
			a.logger.Warn().Err(err).
				Int("batch_end", batch.EndIndex).
				Msg("oracle failed, falling back to frame diff")
			degraded = "oracle unavailable"
		case result.NoChange:
			// explicit none, nothing to contribute
		default:
			oraclePositions = result.Positions
		}
	}

	numericPositions := a.numeric(batch)
	merged := mergePositions(oraclePositions, numericPositions)

	rationale := describe(merged, oraclePositions, numericPositions, degraded)

	a.logger.Info().
		Int("batch_end", batch.EndIndex).
		Ints("oracle", oraclePositions).
		Ints("frame_diff", numericPositions).
		Ints("merged", merged).
		Msg("batch analyzed")

	return merged, rationale
}

// AnalyzeNumeric inspects a batch with the frame-diff detector only. Used
// to flush a trailing partial batch at end of stream, where no oracle call
// is made.
func (a *Analyzer) AnalyzeNumeric(batch *sampler.Batch) ([]int, string) {
	positions := a.numeric(batch)
	rationale := describe(positions, nil, positions, "frame diff only, trailing batch")

	a.logger.Info().
		Int("batch_end", batch.EndIndex).
		Ints("frame_diff", positions).
		Msg("trailing batch analyzed")

	return positions, rationale
}

// numeric runs the detector across every consecutive pair. A true verdict
// lands at the later frame's batch-local position.
func (a *Analyzer) numeric(batch *sampler.Batch) []int {
	var positions []int
	for i := 0; i+1 < len(batch.Frames); i++ {
		if a.detector.Changed(batch.Frames[i].Frame, batch.Frames[i+1].Frame) {
			positions = append(positions, batch.Frames[i+1].Position)
		}
	}
	return positions
}

// mergePositions unions two position lists, deduplicated and ascending.
func mergePositions(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var merged []int
	for _, list := range [][]int{a, b} {
		for _, p := range list {
			if !seen[p] {
				seen[p] = true
				merged = append(merged, p)
			}
		}
	}
	sort.Ints(merged)
	return merged
}

// describe renders the human-readable rationale recorded on each scene.
func describe(merged, oraclePositions, numericPositions []int, degraded string) string {
	var s string
	if len(merged) == 0 {
		s = "Scene changes: None"
	} else {
		s = fmt.Sprintf("Scene changes: %v (oracle: %s, frame diff: %s)",
			merged, formatPositions(oraclePositions), formatPositions(numericPositions))
	}
	if degraded != "" {
		s += " [" + degraded + "]"
	}
	return s
}

func formatPositions(positions []int) string {
	if len(positions) == 0 {
		return "none"
	}
	return fmt.Sprintf("%v", positions)
}
