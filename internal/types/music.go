package types

import (
	"fmt"
	"math"
)

// MusicSection is one labelled span of the analyzed song. Sections arrive
// ordered, non-overlapping and contiguous across the track.
type MusicSection struct {
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	SectionType string  `json:"section_type"`
}

func (s MusicSection) Duration() float64 {
	return s.EndTime - s.StartTime
}

// MusicFeatures is the output of the external audio analyzer.
type MusicFeatures struct {
	Tempo          float64        `json:"tempo"`
	Duration       float64        `json:"duration"`
	Sections       []MusicSection `json:"sections"`
	AudioEmbedding []float32      `json:"audio_embedding"`
}

const sectionContiguityTolerance = 1e-3

// ValidateSections checks ordering, positive spans and contiguity.
func ValidateSections(sections []MusicSection) error {
	if len(sections) == 0 {
		return fmt.Errorf("at least one music section is required")
	}
	for i, s := range sections {
		if s.StartTime >= s.EndTime {
			return fmt.Errorf("section %d: start_time %.3f must be before end_time %.3f", i, s.StartTime, s.EndTime)
		}
		if i > 0 {
			gap := s.StartTime - sections[i-1].EndTime
			if math.Abs(gap) > sectionContiguityTolerance {
				return fmt.Errorf("section %d: not contiguous with previous section (gap %.3fs)", i, gap)
			}
		}
	}
	return nil
}
