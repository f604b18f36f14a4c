package oracle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewChatClientRequiresAPIKey(t *testing.T) {
	if _, err := NewChatClient(zerolog.Nop(), Config{Model: "gpt-4o-mini"}); err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestClassifyRejectsEmptyBatch(t *testing.T) {
	c, err := NewChatClient(zerolog.Nop(), Config{Model: "gpt-4o-mini", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewChatClient failed: %v", err)
	}

	if _, err := c.Classify(context.Background(), nil); err == nil {
		t.Error("expected error for empty image list")
	}
}

func TestEncodeImageURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame_0.jpg")
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	url, err := encodeImageURL(path)
	if err != nil {
		t.Fatalf("encodeImageURL failed: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("unexpected prefix in %q", url)
	}
	if url != "data:image/jpeg;base64,/9j/" {
		t.Errorf("unexpected encoding %q", url)
	}

	if _, err := encodeImageURL(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("expected error for missing image")
	}
}
