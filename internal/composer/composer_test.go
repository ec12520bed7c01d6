package composer

import (
	"errors"
	"math"
	"testing"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

func candidatePool(durations ...float64) []types.MatchResult {
	out := make([]types.MatchResult, 0, len(durations))
	for i, d := range durations {
		out = append(out, types.MatchResult{
			MoveID: moveID(i),
			Score:  1 - float64(i)*0.1,
			Move: types.Move{
				MoveID:    moveID(i),
				VideoPath: "moves/clip.mp4",
				Duration:  d,
			},
		})
	}
	return out
}

func moveID(i int) string {
	return string(rune('a' + i))
}

func TestComposeCyclesCandidatesAndTrimsLastSegment(t *testing.T) {
	c := New(logger.NewNop())

	sections := []types.MusicSection{{StartTime: 0, EndTime: 20, SectionType: "verse"}}
	segments, err := c.Compose(sections, candidatePool(8, 8, 8))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("segments: want=3 got=%d", len(segments))
	}
	wantCumulative := []float64{8, 16, 20}
	cumulative := 0.0
	for i, seg := range segments {
		cumulative += seg.Duration
		if math.Abs(cumulative-wantCumulative[i]) > 1e-9 {
			t.Fatalf("cumulative duration after segment %d: want=%v got=%v", i, wantCumulative[i], cumulative)
		}
	}
	// Candidates cycle a, b, c; the last segment is trimmed to 4s.
	for i, seg := range segments {
		if seg.ClipID != moveID(i) {
			t.Fatalf("segment %d clip: want=%s got=%s", i, moveID(i), seg.ClipID)
		}
	}
	if math.Abs(segments[2].Duration-4) > 1e-9 {
		t.Fatalf("last segment duration: want=4 got=%v", segments[2].Duration)
	}
}

func TestComposeTotalDurationMatchesSections(t *testing.T) {
	c := New(logger.NewNop())

	sections := []types.MusicSection{
		{StartTime: 0, EndTime: 17.3, SectionType: "intro"},
		{StartTime: 17.3, EndTime: 45.9, SectionType: "verse"},
		{StartTime: 45.9, EndTime: 61.2, SectionType: "chorus"},
	}
	segments, err := c.Compose(sections, candidatePool(7.5, 6.1, 9.2))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	var total, sectionTotal float64
	for _, seg := range segments {
		total += seg.Duration
	}
	for _, s := range sections {
		sectionTotal += s.Duration()
	}
	if math.Abs(total-sectionTotal) > 1e-3 {
		t.Fatalf("total duration: want=%v got=%v", sectionTotal, total)
	}
}

func TestComposeSegmentsContiguousNonOverlapping(t *testing.T) {
	c := New(logger.NewNop())

	sections := []types.MusicSection{
		{StartTime: 0, EndTime: 30, SectionType: "verse"},
		{StartTime: 30, EndTime: 50, SectionType: "chorus"},
	}
	segments, err := c.Compose(sections, candidatePool(8, 5))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	cursor := 0.0
	for i, seg := range segments {
		if math.Abs(seg.StartTime-cursor) > 1e-9 {
			t.Fatalf("segment %d not contiguous: start=%v cursor=%v", i, seg.StartTime, cursor)
		}
		if seg.Duration <= 0 {
			t.Fatalf("segment %d non-positive duration: %v", i, seg.Duration)
		}
		cursor = seg.StartTime + seg.Duration
	}
}

func TestComposeTransitionRule(t *testing.T) {
	c := New(logger.NewNop())

	sections := []types.MusicSection{{StartTime: 0, EndTime: 20, SectionType: "verse"}}
	segments, err := c.Compose(sections, candidatePool(8))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if segments[0].TransitionType != "cut" {
		t.Fatalf("first transition: want=cut got=%s", segments[0].TransitionType)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].TransitionType != "crossfade" {
			t.Fatalf("transition %d: want=crossfade got=%s", i, segments[i].TransitionType)
		}
	}
}

func TestComposeDefaultDurationForZeroDurationMove(t *testing.T) {
	c := New(logger.NewNop())

	sections := []types.MusicSection{{StartTime: 0, EndTime: 20, SectionType: "verse"}}
	segments, err := c.Compose(sections, candidatePool(0))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if math.Abs(segments[0].Duration-DefaultMoveDuration) > 1e-9 {
		t.Fatalf("first segment duration: want=%v got=%v", DefaultMoveDuration, segments[0].Duration)
	}
	if math.Abs(segments[0].OriginalDuration-DefaultMoveDuration) > 1e-9 {
		t.Fatalf("original duration: want=%v got=%v", DefaultMoveDuration, segments[0].OriginalDuration)
	}
}

func TestComposeEmptyCandidatesFailsFast(t *testing.T) {
	c := New(logger.NewNop())

	sections := []types.MusicSection{{StartTime: 0, EndTime: 20, SectionType: "verse"}}
	_, err := c.Compose(sections, nil)
	if err == nil {
		t.Fatalf("expected error for empty candidate pool")
	}
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type: want=*types.ConfigurationError got=%T", err)
	}
}

func TestComposeRejectsNonContiguousSections(t *testing.T) {
	c := New(logger.NewNop())

	sections := []types.MusicSection{
		{StartTime: 0, EndTime: 10, SectionType: "intro"},
		{StartTime: 12, EndTime: 20, SectionType: "verse"},
	}
	_, err := c.Compose(sections, candidatePool(8))
	if err == nil {
		t.Fatalf("expected error for non-contiguous sections")
	}
}
