package blueprint

import (
	"fmt"
	"strings"

	"github.com/movecraft/choreo-backend/internal/types"
)

// Validate performs the structural contract check on an assembled blueprint.
// It is pure: no filesystem or network access. Any violation is returned as a
// SchemaValidationError naming the offending field; nothing is repaired.
func Validate(b *types.Blueprint) error {
	if b == nil {
		return &types.SchemaValidationError{Field: "blueprint", Reason: "document is nil"}
	}
	if strings.TrimSpace(b.TaskID) == "" {
		return &types.SchemaValidationError{Field: "task_id", Reason: "required"}
	}
	if strings.TrimSpace(b.AudioPath) == "" {
		return &types.SchemaValidationError{Field: "audio_path", Reason: "required"}
	}
	if err := checkPath("audio_path", b.AudioPath); err != nil {
		return err
	}
	if strings.TrimSpace(b.GenerationTimestamp) == "" {
		return &types.SchemaValidationError{Field: "generation_timestamp", Reason: "required"}
	}
	if strings.TrimSpace(b.DifficultyLevel) == "" {
		return &types.SchemaValidationError{Field: "difficulty_level", Reason: "required"}
	}
	if b.TotalDuration <= 0 {
		return &types.SchemaValidationError{Field: "total_duration", Reason: "must be positive"}
	}

	if len(b.Moves) == 0 {
		return &types.SchemaValidationError{Field: "moves", Reason: "must be non-empty"}
	}
	for i, seg := range b.Moves {
		field := func(name string) string { return fmt.Sprintf("moves[%d].%s", i, name) }
		if strings.TrimSpace(seg.VideoPath) == "" {
			return &types.SchemaValidationError{Field: field("video_path"), Reason: "required"}
		}
		if err := checkPath(field("video_path"), seg.VideoPath); err != nil {
			return err
		}
		if seg.StartTime < 0 {
			return &types.SchemaValidationError{Field: field("start_time"), Reason: "must be non-negative"}
		}
		if seg.Duration <= 0 {
			return &types.SchemaValidationError{Field: field("duration"), Reason: "must be positive"}
		}
		if i > 0 && seg.StartTime < b.Moves[i-1].StartTime {
			return &types.SchemaValidationError{Field: field("start_time"), Reason: "start times must be non-decreasing"}
		}
	}

	if strings.TrimSpace(b.OutputConfig.OutputPath) == "" {
		return &types.SchemaValidationError{Field: "output_config.output_path", Reason: "required"}
	}
	if err := checkPath("output_config.output_path", b.OutputConfig.OutputPath); err != nil {
		return err
	}
	return nil
}

// checkPath rejects absolute paths and any parent-directory segment. The
// render worker resolves every path under its own sandbox root, so a relative
// traversal-free path is the whole contract.
func checkPath(field, path string) error {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return &types.SchemaValidationError{Field: field, Reason: "path must be relative"}
	}
	// Windows drive prefix, e.g. C:\...
	if len(path) >= 2 && path[1] == ':' {
		return &types.SchemaValidationError{Field: field, Reason: "path must be relative"}
	}
	for _, segment := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return &types.SchemaValidationError{Field: field, Reason: "path must not contain parent-directory segments"}
		}
	}
	return nil
}
