package blueprint

import (
	"time"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

// Assembler serializes a packed timeline into the blueprint wire schema and
// validates it before handoff.
type Assembler struct {
	log     *logger.Logger
	profile RenderProfile
	now     func() time.Time
}

func NewAssembler(log *logger.Logger, profile RenderProfile) *Assembler {
	return &Assembler{
		log:     log.With("service", "BlueprintAssembler"),
		profile: profile,
		now:     time.Now,
	}
}

type AssembleInput struct {
	TaskID     string
	AudioPath  string
	Features   types.MusicFeatures
	Params     types.GenerationParams
	Segments   []types.MoveSegment
	OutputPath string
}

// Assemble builds the blueprint document. Total duration is the end of the
// last segment; the source audio duration is only used when no segments exist
// (which the composer's fail-fast makes unreachable in practice).
func (a *Assembler) Assemble(in AssembleInput) *types.Blueprint {
	totalDuration := in.Features.Duration
	if len(in.Segments) > 0 {
		totalDuration = 0
		for _, seg := range in.Segments {
			if end := seg.StartTime + seg.Duration; end > totalDuration {
				totalDuration = end
			}
		}
	}

	return &types.Blueprint{
		TaskID:              in.TaskID,
		AudioPath:           in.AudioPath,
		AudioTempo:          in.Features.Tempo,
		Moves:               in.Segments,
		TotalDuration:       totalDuration,
		DifficultyLevel:     string(in.Params.Difficulty),
		GenerationTimestamp: a.now().UTC().Format(time.RFC3339),
		GenerationParameters: types.GenerationParameters{
			EnergyLevel: string(in.Params.EnergyLevel),
			Style:       string(in.Params.Style),
			UserID:      in.Params.UserID,
		},
		OutputConfig: a.profile.OutputConfig(in.OutputPath),
	}
}
