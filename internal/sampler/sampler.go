// Package sampler drives sequential frame decoding, selects every Nth
// frame, and groups the selections into fixed-size batches. Each sampled
// frame is persisted as a scratch JPEG so the oracle can read it by
// reference; scratch files live only until the owning batch's analysis
// completes.
package sampler

import (
	"fmt"
	"image/jpeg"
	"io"
	"os"

	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/echohive42/video-scene-splitter/pkg/util"
	"github.com/rs/zerolog"
)

// FrameSource is a forward-only sequence of decoded frames. Next returns
// io.EOF at end of stream.
type FrameSource interface {
	Next() (*ffmpeg.Frame, error)
}

// Sampled is one selected frame tagged with its 1-based position within its
// batch and the scratch file it was persisted to. Path is empty when
// persisting failed; the frame still participates in numeric detection.
type Sampled struct {
	Frame    *ffmpeg.Frame
	Position int
	Path     string
}

// Batch is an ordered group of sampled frames analyzed together. Positions
// are contiguous and strictly increasing from 1.
type Batch struct {
	Frames   []Sampled
	EndIndex int // absolute index of the last sampled frame
}

// ImagePaths returns the scratch files backing this batch, skipping frames
// that could not be persisted.
func (b *Batch) ImagePaths() []string {
	paths := make([]string, 0, len(b.Frames))
	for _, s := range b.Frames {
		if s.Path != "" {
			paths = append(paths, s.Path)
		}
	}
	return paths
}

// Cleanup removes the batch's scratch files. Idempotent.
func (b *Batch) Cleanup() {
	for i, s := range b.Frames {
		if s.Path != "" {
			util.CleanupFiles(s.Path)
			b.Frames[i].Path = ""
		}
	}
}

// Sampler selects and batches frames from a source.
type Sampler struct {
	logger     zerolog.Logger
	src        FrameSource
	stride     int
	batchSize  int
	scratchDir string
	onFrame    func(index int)

	pending []Sampled
	done    bool
}

// New creates a sampler selecting frames at indices 0, stride, 2*stride, …
// grouped into batches of batchSize.
func New(logger zerolog.Logger, src FrameSource, stride, batchSize int, scratchDir string) *Sampler {
	return &Sampler{
		logger:     logger.With().Str("component", "sampler").Logger(),
		src:        src,
		stride:     stride,
		batchSize:  batchSize,
		scratchDir: scratchDir,
	}
}

// OnFrame registers a callback invoked for every frame read from the
// source, sampled or not. Used for progress reporting.
func (s *Sampler) OnFrame(fn func(index int)) {
	s.onFrame = fn
}

// Next returns the next full batch, or io.EOF once the source is exhausted.
// Frames left over after the last full batch remain available via Partial.
func (s *Sampler) Next() (*Batch, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		frame, err := s.src.Next()
		if err == io.EOF {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("frame source failed: %w", err)
		}

		if s.onFrame != nil {
			s.onFrame(frame.Index)
		}

		if frame.Index%s.stride != 0 {
			continue
		}

		s.pending = append(s.pending, Sampled{
			Frame:    frame,
			Position: len(s.pending) + 1,
			Path:     s.persist(frame),
		})

		if len(s.pending) == s.batchSize {
			batch := &Batch{
				Frames:   s.pending,
				EndIndex: frame.Index,
			}
			s.pending = nil
			return batch, nil
		}
	}
}

// Partial returns a trailing batch of at least two sampled frames left over
// at end of stream, for numeric-only flushing. A remainder too short for a
// pairwise verdict is discarded, scratch files included. Returns nil before
// the source is exhausted.
func (s *Sampler) Partial() *Batch {
	if !s.done || len(s.pending) == 0 {
		return nil
	}

	pending := s.pending
	s.pending = nil

	if len(pending) < 2 {
		for _, f := range pending {
			util.CleanupFiles(f.Path)
		}
		return nil
	}

	return &Batch{
		Frames:   pending,
		EndIndex: pending[len(pending)-1].Frame.Index,
	}
}

// persist writes the frame to the scratch directory as a JPEG. Failure is
// logged and yields an empty path; it never stops sampling.
func (s *Sampler) persist(frame *ffmpeg.Frame) string {
	path := util.ScratchFramePath(s.scratchDir, frame.Index)

	f, err := os.Create(path)
	if err != nil {
		s.logger.Warn().Err(err).Int("frame", frame.Index).Msg("failed to persist scratch frame")
		return ""
	}
	defer f.Close()

	if err := jpeg.Encode(f, frame.Image(), &jpeg.Options{Quality: 85}); err != nil {
		s.logger.Warn().Err(err).Int("frame", frame.Index).Msg("failed to encode scratch frame")
		util.CleanupFiles(path)
		return ""
	}

	return path
}
