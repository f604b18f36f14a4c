// Package scenes owns the scene list for one pipeline run: it maps
// batch-local boundary positions to absolute frame indices, emits closed
// scene records, and advances the scene-start cursor.
package scenes

import (
	"fmt"
	"time"

	"github.com/echohive42/video-scene-splitter/pkg/util"
	"github.com/rs/zerolog"
)

// Scene is one contiguous run of frames judged to share setting, angle,
// subject and lighting. Immutable once appended to the list. Frame ranges
// are half-open: [StartFrame, EndFrame).
type Scene struct {
	Number     int
	StartFrame int
	EndFrame   int
	StartTime  time.Duration
	EndTime    time.Duration
	ClipPath   string
	Rationale  string
}

// ExtractFunc writes the clip for a frame range and returns its path. An
// error is recoverable: the scene record is kept without a clip reference.
type ExtractFunc func(startFrame, endFrame, sceneNumber int) (string, error)

// Accumulator converts per-batch boundary sets into the ordered scene list.
// Single-writer state local to one pipeline run.
type Accumulator struct {
	logger  zerolog.Logger
	fps     float64
	stride  int
	extract ExtractFunc

	cursor int // first frame of the scene currently being accumulated
	next   int // next scene number
	scenes []Scene
}

// NewAccumulator creates an accumulator with the cursor at frame zero and
// scene numbering starting at 1.
func NewAccumulator(logger zerolog.Logger, fps float64, stride int, extract ExtractFunc) *Accumulator {
	return &Accumulator{
		logger:  logger.With().Str("component", "scenes").Logger(),
		fps:     fps,
		stride:  stride,
		extract: extract,
		next:    1,
	}
}

// Commit consumes one batch's boundary set. positions must be ascending
// batch-local values in 1..size; batchEnd is the absolute index of the
// batch's last sampled frame; size is the number of sampled frames in the
// batch. Each position p maps to
//
//	absolute = batchEnd - (size-p)*stride
//
// and closes the current scene at that frame. The oracle may legitimately
// name the first frame of a batch whose scene is already open (position 1
// of the first batch maps to frame 0); such a boundary would close an
// empty scene, so it is dropped and logged. Batches arriving out of order
// cannot happen in a forward pass and abort the run.
func (a *Accumulator) Commit(positions []int, batchEnd, size int, rationale string) error {
	if batchEnd < a.cursor {
		return fmt.Errorf("batch ending at %d arrived after scene cursor %d", batchEnd, a.cursor)
	}

	for _, p := range positions {
		if p < 1 || p > size {
			return fmt.Errorf("boundary position %d outside batch of size %d", p, size)
		}

		absolute := batchEnd - (size-p)*a.stride
		if absolute <= a.cursor {
			a.logger.Warn().
				Int("frame", absolute).
				Int("cursor", a.cursor).
				Msg("boundary at or before current scene start, dropping")
			continue
		}

		a.emit(absolute, rationale)
	}
	return nil
}

// Finalize emits the trailing scene covering the frames after the last
// confirmed boundary. Call once, after the source is exhausted.
func (a *Accumulator) Finalize(totalFrames int) {
	if a.cursor >= totalFrames-1 {
		return
	}
	a.emit(totalFrames-1, "Final scene")
}

// Scenes returns the accumulated scene list in order.
func (a *Accumulator) Scenes() []Scene {
	return a.scenes
}

func (a *Accumulator) emit(end int, rationale string) {
	number := a.next

	clipPath, err := a.extract(a.cursor, end, number)
	if err != nil {
		a.logger.Warn().Err(err).
			Int("scene", number).
			Int("start_frame", a.cursor).
			Int("end_frame", end).
			Msg("clip extraction failed, keeping scene without clip")
		clipPath = ""
	}

	a.scenes = append(a.scenes, Scene{
		Number:     number,
		StartFrame: a.cursor,
		EndFrame:   end,
		StartTime:  util.FrameTimestamp(a.cursor, a.fps),
		EndTime:    util.FrameTimestamp(end, a.fps),
		ClipPath:   clipPath,
		Rationale:  rationale,
	})

	a.logger.Info().
		Int("scene", number).
		Int("start_frame", a.cursor).
		Int("end_frame", end).
		Str("clip", clipPath).
		Msg("scene closed")

	a.cursor = end
	a.next++
}
