package composer

import (
	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

const (
	// DefaultMoveDuration is used when a corpus entry carries no usable
	// duration.
	DefaultMoveDuration = 8.0

	transitionCut       = "cut"
	transitionCrossfade = "crossfade"

	// timeEpsilon stops the packing loop on floating-point residue.
	timeEpsilon = 1e-9
)

// Composer packs the matched candidate pool onto the song's section timeline.
type Composer struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Composer {
	return &Composer{log: log.With("service", "SequenceComposer")}
}

// Compose walks the sections chronologically, cycling through candidates and
// emitting segments until each section is filled. A single global cursor
// keeps the output contiguous and non-overlapping across sections; the total
// emitted duration equals the total section duration within floating
// tolerance.
func (c *Composer) Compose(sections []types.MusicSection, candidates []types.MatchResult) ([]types.MoveSegment, error) {
	if len(candidates) == 0 {
		return nil, &types.ConfigurationError{Op: "compose", Reason: "candidate pool is empty"}
	}
	if err := types.ValidateSections(sections); err != nil {
		return nil, &types.ConfigurationError{Op: "compose", Reason: "invalid sections", Cause: err}
	}

	segments := make([]types.MoveSegment, 0, len(sections))
	cursor := sections[0].StartTime
	next := 0

	for _, section := range sections {
		if section.StartTime > cursor {
			cursor = section.StartTime
		}
		for section.EndTime-cursor > timeEpsilon {
			move := candidates[next%len(candidates)].Move
			next++

			moveDuration := move.Duration
			if moveDuration <= 0 {
				moveDuration = DefaultMoveDuration
			}
			duration := moveDuration
			if remaining := section.EndTime - cursor; duration > remaining {
				duration = remaining
			}

			transition := transitionCrossfade
			if len(segments) == 0 {
				transition = transitionCut
			}

			segments = append(segments, types.MoveSegment{
				ClipID:           move.MoveID,
				VideoPath:        move.VideoPath,
				StartTime:        cursor,
				Duration:         duration,
				TransitionType:   transition,
				OriginalDuration: moveDuration,
				TrimStart:        0,
				TrimEnd:          duration,
				VolumeAdjustment: 1.0,
			})
			cursor += duration
		}
	}

	c.log.Debug("timeline packed", "sections", len(sections), "segments", len(segments), "total_duration", cursor-sections[0].StartTime)
	return segments, nil
}
