// Package pipeline orchestrates one video's scene splitting as a single
// strictly sequential forward pass: decode, sample, batch, analyze, map
// boundaries, extract clips, write the report.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/echohive42/video-scene-splitter/internal/analyze"
	"github.com/echohive42/video-scene-splitter/internal/config"
	"github.com/echohive42/video-scene-splitter/internal/detect"
	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/echohive42/video-scene-splitter/internal/oracle"
	"github.com/echohive42/video-scene-splitter/internal/sampler"
	"github.com/echohive42/video-scene-splitter/internal/scenes"
	"github.com/echohive42/video-scene-splitter/pkg/util"
	"github.com/rs/zerolog"
)

// Pipeline runs the scene-splitting pass. One oracle call is in flight at a
// time; the scene list, cursor and scratch directory are single-writer
// state local to one run.
type Pipeline struct {
	logger   zerolog.Logger
	cfg      *config.Config
	video    VideoBackend
	oracle   oracle.Client // nil disables the oracle
	progress ProgressFunc
}

// New creates a pipeline backed by ffmpeg/ffprobe from PATH.
func New(logger zerolog.Logger, cfg *config.Config, client oracle.Client) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		cfg:    cfg,
		video:  &executorBackend{exec: exec},
		oracle: client,
	}, nil
}

// Probe returns metadata for a video without processing it.
func (p *Pipeline) Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	return p.video.Probe(ctx, path)
}

// OnProgress registers a per-frame progress callback.
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	p.progress = fn
}

// Run processes one video end to end. Only an unopenable source (or a
// corrupted boundary state) aborts the run; collaborator failures degrade
// per the recovery rules of each stage. Scratch files are removed on every
// exit path.
func (p *Pipeline) Run(ctx context.Context, input string) (*Result, error) {
	p.logger.Info().Str("input", input).Msg("starting scene analysis")

	info, err := p.video.Probe(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}

	p.logger.Info().
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Int("frames", info.FrameCount).
		Dur("duration", info.Duration).
		Msg("video opened")

	if err := util.EnsureDir(p.cfg.ScratchDir); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	if err := util.EnsureDir(p.cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	// Scratch teardown runs on success and failure paths alike; a cleanup
	// failure is logged, never re-raised.
	defer func() {
		if err := util.CleanupDir(p.cfg.ScratchDir); err != nil {
			p.logger.Warn().Err(err).Msg("scratch cleanup failed")
		}
	}()

	stream, err := p.video.OpenStream(ctx, input, info)
	if err != nil {
		return nil, fmt.Errorf("failed to start decoding: %w", err)
	}
	defer stream.Close()

	detector := detect.New(p.logger, p.cfg.DiffThreshold)
	analyzer := analyze.New(p.logger, p.oracle, detector)
	smp := sampler.New(p.logger, stream, p.cfg.Stride, p.cfg.BatchSize, p.cfg.ScratchDir)
	acc := scenes.NewAccumulator(p.logger, info.FPS, p.cfg.Stride, p.extractFunc(ctx, input, info))

	processed := 0
	smp.OnFrame(func(index int) {
		processed = index + 1
		if processed%100 == 0 {
			p.logger.Debug().
				Int("processed", processed).
				Int("total", info.FrameCount).
				Msg("frames processed")
		}
		if p.progress != nil {
			p.progress(processed, info.FrameCount)
		}
	})

	for {
		batch, err := smp.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Decoder died mid-stream; keep what was analyzed so far.
			p.logger.Warn().Err(err).Msg("frame source failed, stopping early")
			break
		}

		if err := p.analyzeBatch(ctx, analyzer, acc, batch, false); err != nil {
			return nil, err
		}
	}

	if partial := smp.Partial(); partial != nil {
		if p.cfg.FlushPartial {
			if err := p.analyzeBatch(ctx, analyzer, acc, partial, true); err != nil {
				return nil, err
			}
		} else {
			partial.Cleanup()
		}
	}

	acc.Finalize(info.FrameCount)

	result := &Result{
		Video:           info,
		Scenes:          acc.Scenes(),
		FramesProcessed: processed,
	}

	if err := scenes.WriteReport(p.cfg.ReportPath, result.Scenes); err != nil {
		p.logger.Warn().Err(err).Str("path", p.cfg.ReportPath).Msg("failed to write report")
	} else {
		result.ReportPath = p.cfg.ReportPath
		p.logger.Info().Str("path", p.cfg.ReportPath).Msg("scene analysis saved")
	}

	p.logger.Info().
		Int("scenes", len(result.Scenes)).
		Int("frames", processed).
		Msg("scene analysis complete")

	return result, nil
}

// analyzeBatch analyzes one batch and commits its boundaries, releasing the
// batch's scratch files whether or not analysis succeeds.
func (p *Pipeline) analyzeBatch(ctx context.Context, analyzer *analyze.Analyzer, acc *scenes.Accumulator, batch *sampler.Batch, trailing bool) error {
	defer batch.Cleanup()

	var positions []int
	var rationale string
	if trailing {
		positions, rationale = analyzer.AnalyzeNumeric(batch)
	} else {
		positions, rationale = analyzer.Analyze(ctx, batch)
	}

	if err := acc.Commit(positions, batch.EndIndex, len(batch.Frames), rationale); err != nil {
		return fmt.Errorf("boundary mapping failed: %w", err)
	}
	return nil
}

// extractFunc builds the clip-extraction delegate handed to the
// accumulator.
func (p *Pipeline) extractFunc(ctx context.Context, input string, info *ffmpeg.VideoInfo) scenes.ExtractFunc {
	return func(startFrame, endFrame, sceneNumber int) (string, error) {
		return p.video.ExtractScene(ctx, input, ffmpeg.ExtractOptions{
			StartFrame:  startFrame,
			EndFrame:    endFrame,
			SceneNumber: sceneNumber,
			FPS:         info.FPS,
			OutputDir:   p.cfg.OutputDir,
			Preset:      p.cfg.FFmpeg.Preset,
			CRF:         p.cfg.FFmpeg.CRF,
			ProgressFunc: func(prog *ffmpeg.Progress) {
				p.logger.Debug().
					Int("scene", sceneNumber).
					Int("frame", prog.Frame).
					Str("speed", prog.Speed).
					Msg("encoding scene clip")
			},
		})
	}
}

// executorBackend adapts the ffmpeg executor to the VideoBackend interface.
type executorBackend struct {
	exec *ffmpeg.Executor
}

func (b *executorBackend) Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	return b.exec.ProbeVideo(ctx, path)
}

func (b *executorBackend) OpenStream(ctx context.Context, path string, info *ffmpeg.VideoInfo) (FrameStream, error) {
	return b.exec.OpenFrameStream(ctx, path, info)
}

func (b *executorBackend) ExtractScene(ctx context.Context, input string, opts ffmpeg.ExtractOptions) (string, error) {
	return b.exec.ExtractScene(ctx, input, opts)
}
