package blueprint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/movecraft/choreo-backend/internal/types"
)

// RenderProfile holds the output settings applied to every blueprint. A
// profile file can override the compiled defaults; the output path is always
// request-specific.
type RenderProfile struct {
	OutputFormat       string  `yaml:"output_format"`
	VideoCodec         string  `yaml:"video_codec"`
	AudioCodec         string  `yaml:"audio_codec"`
	VideoBitrate       string  `yaml:"video_bitrate"`
	AudioBitrate       string  `yaml:"audio_bitrate"`
	FrameRate          int     `yaml:"frame_rate"`
	TransitionDuration float64 `yaml:"transition_duration"`
	FadeDuration       float64 `yaml:"fade_duration"`
	AddAudioOverlay    *bool   `yaml:"add_audio_overlay"`
	NormalizeAudio     *bool   `yaml:"normalize_audio"`
}

func DefaultRenderProfile() RenderProfile {
	on := true
	return RenderProfile{
		OutputFormat:       "mp4",
		VideoCodec:         "libx264",
		AudioCodec:         "aac",
		VideoBitrate:       "5000k",
		AudioBitrate:       "192k",
		FrameRate:          30,
		TransitionDuration: 0.5,
		FadeDuration:       0.5,
		AddAudioOverlay:    &on,
		NormalizeAudio:     &on,
	}
}

// LoadRenderProfile reads a YAML profile and fills gaps from the defaults.
func LoadRenderProfile(path string) (RenderProfile, error) {
	profile := DefaultRenderProfile()
	raw, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read render profile: %w", err)
	}
	var override RenderProfile
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return profile, fmt.Errorf("parse render profile: %w", err)
	}
	if override.OutputFormat != "" {
		profile.OutputFormat = override.OutputFormat
	}
	if override.VideoCodec != "" {
		profile.VideoCodec = override.VideoCodec
	}
	if override.AudioCodec != "" {
		profile.AudioCodec = override.AudioCodec
	}
	if override.VideoBitrate != "" {
		profile.VideoBitrate = override.VideoBitrate
	}
	if override.AudioBitrate != "" {
		profile.AudioBitrate = override.AudioBitrate
	}
	if override.FrameRate > 0 {
		profile.FrameRate = override.FrameRate
	}
	if override.TransitionDuration > 0 {
		profile.TransitionDuration = override.TransitionDuration
	}
	if override.FadeDuration > 0 {
		profile.FadeDuration = override.FadeDuration
	}
	if override.AddAudioOverlay != nil {
		profile.AddAudioOverlay = override.AddAudioOverlay
	}
	if override.NormalizeAudio != nil {
		profile.NormalizeAudio = override.NormalizeAudio
	}
	return profile, nil
}

// OutputConfig materializes the profile into the wire-schema record.
func (p RenderProfile) OutputConfig(outputPath string) types.OutputConfig {
	overlay := true
	if p.AddAudioOverlay != nil {
		overlay = *p.AddAudioOverlay
	}
	normalize := true
	if p.NormalizeAudio != nil {
		normalize = *p.NormalizeAudio
	}
	return types.OutputConfig{
		OutputPath:         outputPath,
		OutputFormat:       p.OutputFormat,
		VideoCodec:         p.VideoCodec,
		AudioCodec:         p.AudioCodec,
		VideoBitrate:       p.VideoBitrate,
		AudioBitrate:       p.AudioBitrate,
		FrameRate:          p.FrameRate,
		TransitionDuration: p.TransitionDuration,
		FadeDuration:       p.FadeDuration,
		AddAudioOverlay:    overlay,
		NormalizeAudio:     normalize,
	}
}
