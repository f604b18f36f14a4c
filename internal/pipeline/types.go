package pipeline

import (
	"context"

	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/echohive42/video-scene-splitter/internal/sampler"
	"github.com/echohive42/video-scene-splitter/internal/scenes"
)

// FrameStream is a closeable forward-only frame source.
type FrameStream interface {
	sampler.FrameSource
	Close() error
}

// VideoBackend abstracts the video collaborators the pipeline drives:
// probing, sequential decode, and scene extraction.
type VideoBackend interface {
	Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	OpenStream(ctx context.Context, path string, info *ffmpeg.VideoInfo) (FrameStream, error)
	ExtractScene(ctx context.Context, input string, opts ffmpeg.ExtractOptions) (string, error)
}

// ProgressFunc reports frames read from the source so far.
type ProgressFunc func(processed, total int)

// Result summarizes one pipeline run.
type Result struct {
	Video           *ffmpeg.VideoInfo
	Scenes          []scenes.Scene
	ReportPath      string
	FramesProcessed int
}
