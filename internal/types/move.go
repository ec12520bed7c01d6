package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MoveRecord is the persisted form of a catalogued dance move. Embeddings are
// produced offline by the pose-estimation pipeline and stored as JSONB; the
// whole table is read wholesale into a corpus snapshot, never mutated in place.
type MoveRecord struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MoveID         string         `gorm:"column:move_id;uniqueIndex;not null" json:"move_id"`
	MoveName       string         `gorm:"column:move_name;not null" json:"move_name"`
	VideoPath      string         `gorm:"column:video_path;not null" json:"video_path"`
	Difficulty     Difficulty     `gorm:"column:difficulty;index;not null" json:"difficulty"`
	EnergyLevel    EnergyLevel    `gorm:"column:energy_level;index;not null" json:"energy_level"`
	Style          Style          `gorm:"column:style;index;not null" json:"style"`
	Duration       float64        `gorm:"column:duration;not null" json:"duration"`
	PoseEmbedding  datatypes.JSON `gorm:"type:jsonb;column:pose_embedding" json:"pose_embedding"`
	AudioEmbedding datatypes.JSON `gorm:"type:jsonb;column:audio_embedding" json:"audio_embedding"`
	TextEmbedding  datatypes.JSON `gorm:"type:jsonb;column:text_embedding" json:"text_embedding"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (MoveRecord) TableName() string {
	return "move_record"
}

// Decode converts the persisted record into the in-memory form the engine
// works with. Embedding columns are decoded from JSONB float arrays; a null
// column yields a nil vector (absent modality).
func (r *MoveRecord) Decode() (Move, error) {
	m := Move{
		MoveID:      r.MoveID,
		MoveName:    r.MoveName,
		VideoPath:   r.VideoPath,
		Difficulty:  r.Difficulty,
		EnergyLevel: r.EnergyLevel,
		Style:       r.Style,
		Duration:    r.Duration,
	}
	var err error
	if m.PoseEmbedding, err = decodeVector(r.PoseEmbedding); err != nil {
		return Move{}, fmt.Errorf("move %s: pose embedding: %w", r.MoveID, err)
	}
	if m.AudioEmbedding, err = decodeVector(r.AudioEmbedding); err != nil {
		return Move{}, fmt.Errorf("move %s: audio embedding: %w", r.MoveID, err)
	}
	if m.TextEmbedding, err = decodeVector(r.TextEmbedding); err != nil {
		return Move{}, fmt.Errorf("move %s: text embedding: %w", r.MoveID, err)
	}
	return m, nil
}

func decodeVector(raw datatypes.JSON) ([]float32, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeVector is the write-side counterpart of decodeVector, used when
// seeding the corpus.
func EncodeVector(v []float32) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON("null"), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// Move is the immutable in-memory form of a corpus entry.
type Move struct {
	MoveID         string
	MoveName       string
	VideoPath      string
	Difficulty     Difficulty
	EnergyLevel    EnergyLevel
	Style          Style
	Duration       float64
	PoseEmbedding  []float32
	AudioEmbedding []float32
	TextEmbedding  []float32
}

// MatchResult is one ranked hit from the similarity search. Score is a raw
// inner product over unit vectors, so it lies in the cosine range [-1, 1];
// it is deliberately not clamped.
type MatchResult struct {
	MoveID string  `json:"move_id"`
	Score  float64 `json:"score"`
	Move   Move    `json:"-"`
}
