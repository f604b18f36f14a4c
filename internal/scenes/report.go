package scenes

import (
	"fmt"
	"os"
	"strings"

	"github.com/echohive42/video-scene-splitter/pkg/util"
)

// WriteReport serializes the scene list as a human-readable log, one record
// per scene in scene order.
func WriteReport(path string, list []Scene) error {
	var b strings.Builder

	for _, s := range list {
		fmt.Fprintf(&b, "Scene %d:\n", s.Number)
		fmt.Fprintf(&b, "Time Range: %s - %s\n",
			util.FormatDuration(s.StartTime), util.FormatDuration(s.EndTime))
		fmt.Fprintf(&b, "Frame Range: %d - %d\n", s.StartFrame, s.EndFrame)

		clip := s.ClipPath
		if clip == "" {
			clip = "(not extracted)"
		}
		fmt.Fprintf(&b, "Video File: %s\n", clip)
		fmt.Fprintf(&b, "Analysis:\n%s\n", s.Rationale)
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}
