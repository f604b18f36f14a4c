package scenes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene_analysis.txt")

	list := []Scene{
		{
			Number:     1,
			StartFrame: 0,
			EndFrame:   285,
			StartTime:  0,
			EndTime:    9500 * time.Millisecond,
			ClipPath:   "scenes/scene_1.mp4",
			Rationale:  "Scene changes: [3] (oracle: [3], frame diff: none)",
		},
		{
			Number:     2,
			StartFrame: 285,
			EndFrame:   449,
			StartTime:  9500 * time.Millisecond,
			EndTime:    14966 * time.Millisecond,
			Rationale:  "Final scene",
		},
	}

	if err := WriteReport(path, list); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	report := string(data)

	for _, want := range []string{
		"Scene 1:\n",
		"Time Range: 00:00:00.000 - 00:00:09.500\n",
		"Frame Range: 0 - 285\n",
		"Video File: scenes/scene_1.mp4\n",
		"Analysis:\nScene changes: [3] (oracle: [3], frame diff: none)\n",
		"Scene 2:\n",
		"Video File: (not extracted)\n",
		"Analysis:\nFinal scene\n",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\nreport:\n%s", want, report)
		}
	}

	if got := strings.Count(report, strings.Repeat("-", 50)); got != 2 {
		t.Errorf("expected 2 separators, got %d", got)
	}
}

func TestWriteReportEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")

	if err := WriteReport(path, nil); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty report, got %q", data)
	}
}
