package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/echohive42/video-scene-splitter/pkg/util"
)

// ExtractOptions defines scene extraction parameters
type ExtractOptions struct {
	StartFrame   int
	EndFrame     int // exclusive
	SceneNumber  int
	FPS          float64
	OutputDir    string
	Preset       string // empty selects DefaultPreset
	CRF          int    // negative selects DefaultCRF; 0 is lossless
	ProgressFunc ProgressFunc
}

// ScenePath returns the deterministic clip path for a scene number.
func ScenePath(outputDir string, sceneNumber int) string {
	return filepath.Join(outputDir, fmt.Sprintf("scene_%d.mp4", sceneNumber))
}

// encodeSettings resolves the encoding options, filling in defaults. CRF 0
// stays 0 (lossless); only a negative value asks for the default.
func encodeSettings(opts ExtractOptions) (preset string, crf int) {
	preset = opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	crf = opts.CRF
	if crf < 0 {
		crf = DefaultCRF
	}
	return preset, crf
}

// ExtractScene re-encodes the frame range [StartFrame, EndFrame) as an
// independently playable clip, preserving the source frame rate and
// dimensions. Returns the clip path.
func (e *Executor) ExtractScene(ctx context.Context, input string, opts ExtractOptions) (string, error) {
	if opts.EndFrame <= opts.StartFrame {
		return "", fmt.Errorf("invalid frame range %d-%d", opts.StartFrame, opts.EndFrame)
	}
	if opts.FPS <= 0 {
		return "", fmt.Errorf("frame rate must be positive, got %g", opts.FPS)
	}

	output := ScenePath(opts.OutputDir, opts.SceneNumber)
	start := util.FrameTimestamp(opts.StartFrame, opts.FPS)
	duration := util.FrameTimestamp(opts.EndFrame-opts.StartFrame, opts.FPS)

	e.logger.Info().
		Int("scene", opts.SceneNumber).
		Int("start_frame", opts.StartFrame).
		Int("end_frame", opts.EndFrame).
		Str("output", output).
		Msg("extracting scene")

	preset, crf := encodeSettings(opts)

	args := []string{
		"-ss", util.FormatDuration(start),
		"-i", input,
		"-t", util.FormatDuration(duration),
		"-c:v", DefaultVideoCodec,
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		"-an",
		output,
	}

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("scene extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return "", fmt.Errorf("scene extraction failed: %w", err)
	}

	e.logger.Info().Int("scene", opts.SceneNumber).Str("output", output).Msg("scene saved")
	return output, nil
}
