package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MoveSegment is one clip placement on the choreography timeline. Field names
// match the render worker's wire schema bit-exactly.
type MoveSegment struct {
	ClipID           string  `json:"clip_id"`
	VideoPath        string  `json:"video_path"`
	StartTime        float64 `json:"start_time"`
	Duration         float64 `json:"duration"`
	TransitionType   string  `json:"transition_type"`
	OriginalDuration float64 `json:"original_duration"`
	TrimStart        float64 `json:"trim_start"`
	TrimEnd          float64 `json:"trim_end"`
	VolumeAdjustment float64 `json:"volume_adjustment"`
}

// OutputConfig carries the render settings the execution job applies.
type OutputConfig struct {
	OutputPath         string  `json:"output_path"`
	OutputFormat       string  `json:"output_format"`
	VideoCodec         string  `json:"video_codec"`
	AudioCodec         string  `json:"audio_codec"`
	VideoBitrate       string  `json:"video_bitrate"`
	AudioBitrate       string  `json:"audio_bitrate"`
	FrameRate          int     `json:"frame_rate"`
	TransitionDuration float64 `json:"transition_duration"`
	FadeDuration       float64 `json:"fade_duration"`
	AddAudioOverlay    bool    `json:"add_audio_overlay"`
	NormalizeAudio     bool    `json:"normalize_audio"`
}

type GenerationParameters struct {
	EnergyLevel string `json:"energy_level"`
	Style       string `json:"style"`
	UserID      string `json:"user_id"`
}

// Blueprint is the portable instruction document handed to the external
// execution job. It is immutable after validation.
type Blueprint struct {
	TaskID               string               `json:"task_id"`
	AudioPath            string               `json:"audio_path"`
	AudioTempo           float64              `json:"audio_tempo"`
	Moves                []MoveSegment        `json:"moves"`
	TotalDuration        float64              `json:"total_duration"`
	DifficultyLevel      string               `json:"difficulty_level"`
	GenerationTimestamp  string               `json:"generation_timestamp"`
	GenerationParameters GenerationParameters `json:"generation_parameters"`
	OutputConfig         OutputConfig         `json:"output_config"`
}

// MarshalWire serializes the blueprint to the JSON wire format.
func (b *Blueprint) MarshalWire() ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalWire parses a wire-format blueprint document.
func UnmarshalWire(raw []byte) (*Blueprint, error) {
	var b Blueprint
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// BlueprintDocument is the persisted audit copy of a generated blueprint,
// stored as the exact JSON handed to the render worker.
type BlueprintDocument struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskID    string         `gorm:"column:task_id;uniqueIndex;not null" json:"task_id"`
	UserID    string         `gorm:"column:user_id;index" json:"user_id"`
	Document  datatypes.JSON `gorm:"type:jsonb;column:document;not null" json:"document"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (BlueprintDocument) TableName() string {
	return "blueprint_document"
}
