package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/echohive42/video-scene-splitter/internal/config"
	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/echohive42/video-scene-splitter/internal/oracle"
	"github.com/rs/zerolog"
)

// fakeStream replays pre-built frames.
type fakeStream struct {
	frames []*ffmpeg.Frame
	pos    int
	closed bool
}

func (s *fakeStream) Next() (*ffmpeg.Frame, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeBackend serves canned metadata and frames and records extractions.
type fakeBackend struct {
	info      *ffmpeg.VideoInfo
	stream    *fakeStream
	extracted []ffmpeg.ExtractOptions
}

func (b *fakeBackend) Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	if b.info == nil {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return b.info, nil
}

func (b *fakeBackend) OpenStream(ctx context.Context, path string, info *ffmpeg.VideoInfo) (FrameStream, error) {
	return b.stream, nil
}

func (b *fakeBackend) ExtractScene(ctx context.Context, input string, opts ffmpeg.ExtractOptions) (string, error) {
	b.extracted = append(b.extracted, opts)
	return ffmpeg.ScenePath(opts.OutputDir, opts.SceneNumber), nil
}

// stubOracle returns a canned classification result.
type stubOracle struct {
	result oracle.Result
	err    error
}

func (s *stubOracle) Classify(ctx context.Context, imagePaths []string) (oracle.Result, error) {
	return s.result, s.err
}

// grayFrames builds 2x2 frames at the given intensities, one per level.
func grayFrames(levels ...byte) []*ffmpeg.Frame {
	frames := make([]*ffmpeg.Frame, len(levels))
	for i, level := range levels {
		pix := make([]byte, 2*2*3)
		for j := range pix {
			pix[j] = level
		}
		frames[i] = &ffmpeg.Frame{Index: i, Width: 2, Height: 2, Pix: pix}
	}
	return frames
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Stride:        1,
		BatchSize:     4,
		DiffThreshold: 30.0,
		ScratchDir:    filepath.Join(dir, "scratch"),
		OutputDir:     filepath.Join(dir, "scenes"),
		ReportPath:    filepath.Join(dir, "scene_analysis.txt"),
		FlushPartial:  true,
	}
}

func testPipeline(cfg *config.Config, backend *fakeBackend, client oracle.Client) *Pipeline {
	return &Pipeline{
		logger: zerolog.Nop(),
		cfg:    cfg,
		video:  backend,
		oracle: client,
	}
}

func TestRunSplitsAtVisualBreak(t *testing.T) {
	// Eight frames, black to white after index 1: the only boundary falls at
	// frame 2, so the video splits into [0, 2) and a trailing [2, 7).
	frames := grayFrames(0, 0, 255, 255, 255, 255, 255, 255)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 8},
		stream: &fakeStream{frames: frames},
	}
	cfg := testConfig(t)
	p := testPipeline(cfg, backend, &stubOracle{result: oracle.Result{NoChange: true}})

	result, err := p.Run(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(result.Scenes))
	}
	first, last := result.Scenes[0], result.Scenes[1]
	if first.StartFrame != 0 || first.EndFrame != 2 {
		t.Errorf("expected first scene [0, 2), got [%d, %d)", first.StartFrame, first.EndFrame)
	}
	if last.StartFrame != 2 || last.EndFrame != 7 {
		t.Errorf("expected trailing scene [2, 7), got [%d, %d)", last.StartFrame, last.EndFrame)
	}

	if len(backend.extracted) != 2 {
		t.Errorf("expected 2 clip extractions, got %d", len(backend.extracted))
	}
	for i, opts := range backend.extracted {
		if opts.ProgressFunc == nil {
			t.Errorf("extraction %d: no progress handler wired", i)
		}
	}
	if first.ClipPath == "" || last.ClipPath == "" {
		t.Error("expected clip paths on both scenes")
	}

	if result.FramesProcessed != 8 {
		t.Errorf("expected 8 frames processed, got %d", result.FramesProcessed)
	}
	if !backend.stream.closed {
		t.Error("frame stream not closed")
	}
}

func TestRunWritesReportAndCleansScratch(t *testing.T) {
	frames := grayFrames(0, 0, 0, 0, 255, 255, 255, 255)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 8},
		stream: &fakeStream{frames: frames},
	}
	cfg := testConfig(t)
	p := testPipeline(cfg, backend, nil)

	result, err := p.Run(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.ReportPath != cfg.ReportPath {
		t.Errorf("expected report at %s, got %s", cfg.ReportPath, result.ReportPath)
	}
	data, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(data), "Scene 1:") {
		t.Errorf("report missing scene record:\n%s", data)
	}

	if _, err := os.Stat(cfg.ScratchDir); !os.IsNotExist(err) {
		t.Error("scratch directory survived the run")
	}
}

func TestRunDegradesWhenOracleFails(t *testing.T) {
	frames := grayFrames(0, 0, 255, 255, 255, 255, 255, 255)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 8},
		stream: &fakeStream{frames: frames},
	}
	cfg := testConfig(t)
	p := testPipeline(cfg, backend, &stubOracle{err: fmt.Errorf("rate limited")})

	result, err := p.Run(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Scenes) != 2 {
		t.Fatalf("expected 2 scenes despite oracle failure, got %d", len(result.Scenes))
	}
	if !strings.Contains(result.Scenes[0].Rationale, "oracle unavailable") {
		t.Errorf("rationale missing degradation note: %q", result.Scenes[0].Rationale)
	}
}

func TestRunFlushesTrailingPartialBatch(t *testing.T) {
	// Six frames: one full batch of four, then a two-frame remainder with the
	// break between them. The remainder is flushed through the detector only.
	frames := grayFrames(0, 0, 0, 0, 0, 255)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 6},
		stream: &fakeStream{frames: frames},
	}
	cfg := testConfig(t)
	p := testPipeline(cfg, backend, nil)

	result, err := p.Run(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(result.Scenes))
	}
	s := result.Scenes[0]
	if s.StartFrame != 0 || s.EndFrame != 5 {
		t.Errorf("expected [0, 5), got [%d, %d)", s.StartFrame, s.EndFrame)
	}
	if !strings.Contains(s.Rationale, "trailing batch") {
		t.Errorf("rationale missing trailing note: %q", s.Rationale)
	}
}

func TestRunDiscardsPartialWhenFlushDisabled(t *testing.T) {
	frames := grayFrames(0, 0, 0, 0, 0, 255)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 6},
		stream: &fakeStream{frames: frames},
	}
	cfg := testConfig(t)
	cfg.FlushPartial = false
	p := testPipeline(cfg, backend, nil)

	result, err := p.Run(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Scenes) != 1 {
		t.Fatalf("expected only the final scene, got %d", len(result.Scenes))
	}
	if result.Scenes[0].Rationale != "Final scene" {
		t.Errorf("expected final-scene rationale, got %q", result.Scenes[0].Rationale)
	}
}

func TestRunSteadyVideoYieldsSingleScene(t *testing.T) {
	frames := grayFrames(128, 128, 128, 128, 128, 128, 128, 128)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 8},
		stream: &fakeStream{frames: frames},
	}
	cfg := testConfig(t)
	p := testPipeline(cfg, backend, &stubOracle{result: oracle.Result{NoChange: true}})

	result, err := p.Run(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(result.Scenes))
	}
	if result.Scenes[0].StartFrame != 0 || result.Scenes[0].EndFrame != 7 {
		t.Errorf("expected [0, 7), got [%d, %d)",
			result.Scenes[0].StartFrame, result.Scenes[0].EndFrame)
	}
}

func TestRunSurvivesOracleBoundaryAtFrameZero(t *testing.T) {
	// An oracle reply naming position 1 of the very first batch maps to
	// frame 0, the start of the open scene. It must be dropped, not abort
	// the run.
	frames := grayFrames(128, 128, 128, 128)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 4},
		stream: &fakeStream{frames: frames},
	}
	cfg := testConfig(t)
	p := testPipeline(cfg, backend, &stubOracle{result: oracle.Result{Positions: []int{1}}})

	result, err := p.Run(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Run failed on a valid oracle reply: %v", err)
	}

	if len(result.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(result.Scenes))
	}
	if result.Scenes[0].StartFrame != 0 || result.Scenes[0].EndFrame != 3 {
		t.Errorf("expected [0, 3), got [%d, %d)",
			result.Scenes[0].StartFrame, result.Scenes[0].EndFrame)
	}
}

func TestRunFailsWhenSourceUnopenable(t *testing.T) {
	p := testPipeline(testConfig(t), &fakeBackend{}, nil)

	if _, err := p.Run(context.Background(), "missing.mp4"); err == nil {
		t.Fatal("expected error for unopenable source")
	}
}

func TestRunReportsProgress(t *testing.T) {
	frames := grayFrames(0, 0, 0, 0, 0, 0, 0, 0)
	backend := &fakeBackend{
		info:   &ffmpeg.VideoInfo{FilePath: "in.mp4", Width: 2, Height: 2, FPS: 30, FrameCount: 8},
		stream: &fakeStream{frames: frames},
	}
	p := testPipeline(testConfig(t), backend, nil)

	var last, total int
	p.OnProgress(func(processed, totalFrames int) {
		last = processed
		total = totalFrames
	})

	if _, err := p.Run(context.Background(), "in.mp4"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if last != 8 || total != 8 {
		t.Errorf("expected final progress 8/8, got %d/%d", last, total)
	}
}
