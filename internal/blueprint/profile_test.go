package blueprint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRenderProfileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := []byte(`
output_format: webm
video_codec: libvpx-vp9
frame_rate: 60
add_audio_overlay: false
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	profile, err := LoadRenderProfile(path)
	if err != nil {
		t.Fatalf("LoadRenderProfile: %v", err)
	}

	cfg := profile.OutputConfig("renders/out.webm")
	if cfg.OutputFormat != "webm" {
		t.Fatalf("output_format: want=webm got=%s", cfg.OutputFormat)
	}
	if cfg.VideoCodec != "libvpx-vp9" {
		t.Fatalf("video_codec: want=libvpx-vp9 got=%s", cfg.VideoCodec)
	}
	if cfg.FrameRate != 60 {
		t.Fatalf("frame_rate: want=60 got=%d", cfg.FrameRate)
	}
	if cfg.AddAudioOverlay {
		t.Fatalf("add_audio_overlay: want=false")
	}
	// Untouched fields keep their defaults.
	if cfg.AudioCodec != "aac" {
		t.Fatalf("audio_codec default: want=aac got=%s", cfg.AudioCodec)
	}
	if !cfg.NormalizeAudio {
		t.Fatalf("normalize_audio default: want=true")
	}
}

func TestLoadRenderProfileMissingFileKeepsDefaults(t *testing.T) {
	profile, err := LoadRenderProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing profile file")
	}
	cfg := profile.OutputConfig("renders/out.mp4")
	if cfg.OutputFormat != "mp4" || cfg.VideoCodec != "libx264" {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}
