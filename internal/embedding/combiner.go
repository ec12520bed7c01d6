package embedding

import (
	"fmt"
	"math"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

// Fixed modality dimensions. Corpus embeddings are produced offline with
// these sizes; anything else is a configuration fault.
const (
	PoseDim  = 512
	AudioDim = 128
	TextDim  = 384

	CombinedDim = PoseDim + AudioDim + TextDim
)

// normEpsilon guards the per-modality normalization against zero vectors.
const normEpsilon = 1e-10

// Weights scale each modality's unit vector before concatenation.
type Weights struct {
	Pose  float64
	Audio float64
	Text  float64
}

var DefaultWeights = Weights{Pose: 0.35, Audio: 0.35, Text: 0.30}

// Combiner fuses up to three modality vectors into one fixed-length vector.
// The exact same transformation is applied to corpus rows and to queries;
// any asymmetry would invalidate the similarity semantics.
type Combiner struct {
	log     *logger.Logger
	weights Weights
}

func NewCombiner(log *logger.Logger, weights Weights) (*Combiner, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if weights.Pose <= 0 || weights.Audio <= 0 || weights.Text <= 0 {
		return nil, &types.ConfigurationError{
			Op:     "combine",
			Reason: fmt.Sprintf("fusion weights must all be positive, got (%.3f, %.3f, %.3f)", weights.Pose, weights.Audio, weights.Text),
		}
	}
	return &Combiner{
		log:     log.With("service", "EmbeddingCombiner"),
		weights: weights,
	}, nil
}

// Combine builds the 1024-dim fused vector. A nil or empty modality becomes a
// zero sub-vector; a present modality is L2-normalized then scaled by its
// weight. All three modalities absent is an error.
func (c *Combiner) Combine(pose, audio, text []float32) ([]float32, error) {
	if len(pose) == 0 && len(audio) == 0 && len(text) == 0 {
		return nil, &types.ConfigurationError{
			Op:     "combine",
			Reason: "at least one modality embedding is required",
		}
	}

	out := make([]float32, 0, CombinedDim)
	for _, part := range []struct {
		name   string
		vec    []float32
		dim    int
		weight float64
	}{
		{"pose", pose, PoseDim, c.weights.Pose},
		{"audio", audio, AudioDim, c.weights.Audio},
		{"text", text, TextDim, c.weights.Text},
	} {
		sub, err := normalizeScaled(part.vec, part.dim, part.weight)
		if err != nil {
			return nil, &types.ConfigurationError{
				Op:     "combine",
				Reason: fmt.Sprintf("%s modality: %v", part.name, err),
			}
		}
		out = append(out, sub...)
	}
	return out, nil
}

// CombineMove fuses a corpus entry's stored embeddings through the identical
// code path queries go through.
func (c *Combiner) CombineMove(m types.Move) ([]float32, error) {
	return c.Combine(m.PoseEmbedding, m.AudioEmbedding, m.TextEmbedding)
}

func normalizeScaled(vec []float32, dim int, weight float64) ([]float32, error) {
	out := make([]float32, dim)
	if len(vec) == 0 {
		return out, nil
	}
	if len(vec) != dim {
		return nil, fmt.Errorf("dimension mismatch: expected=%d got=%d", dim, len(vec))
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm < normEpsilon {
		// Zero vector: treat as absent rather than divide by ~0.
		return out, nil
	}
	scale := weight / norm
	for i, v := range vec {
		out[i] = float32(float64(v) * scale)
	}
	return out, nil
}
