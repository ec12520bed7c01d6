package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/movecraft/choreo-backend/internal/blueprint"
	"github.com/movecraft/choreo-backend/internal/composer"
	"github.com/movecraft/choreo-backend/internal/embedding"
	"github.com/movecraft/choreo-backend/internal/matcher"
	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/repos"
	"github.com/movecraft/choreo-backend/internal/types"
)

// GenerateRequest is one full generation call: the analyzer's features plus
// the extractor's style parameters, with optional pose/text query embeddings.
type GenerateRequest struct {
	TaskID        string
	AudioPath     string
	Features      types.MusicFeatures
	Params        types.GenerationParams
	PoseEmbedding []float32
	TextEmbedding []float32
	OutputPath    string
	TopK          int
}

type ChoreographyService interface {
	Generate(ctx context.Context, req GenerateRequest) (*types.Blueprint, error)
}

type choreographyService struct {
	log        *logger.Logger
	combiner   *embedding.Combiner
	matcher    *matcher.Matcher
	composer   *composer.Composer
	assembler  *blueprint.Assembler
	blueprints repos.BlueprintRepo // optional audit copy
	queue      RenderQueue         // optional handoff
	tracer     trace.Tracer
}

func NewChoreographyService(
	log *logger.Logger,
	combiner *embedding.Combiner,
	moveMatcher *matcher.Matcher,
	seqComposer *composer.Composer,
	assembler *blueprint.Assembler,
	blueprints repos.BlueprintRepo,
	queue RenderQueue,
) (ChoreographyService, error) {
	if combiner == nil || moveMatcher == nil || seqComposer == nil || assembler == nil {
		return nil, fmt.Errorf("choreography service: missing deps")
	}
	return &choreographyService{
		log:        log.With("service", "ChoreographyService"),
		combiner:   combiner,
		matcher:    moveMatcher,
		composer:   seqComposer,
		assembler:  assembler,
		blueprints: blueprints,
		queue:      queue,
		tracer:     otel.Tracer("choreography"),
	}, nil
}

// Generate runs the whole pipeline synchronously: fuse the query vector,
// match candidates through the fallback ladder, pack the timeline, assemble
// and validate the blueprint, then hand it off. Any stage error aborts the
// request; no partial blueprint is ever returned.
func (s *choreographyService) Generate(ctx context.Context, req GenerateRequest) (*types.Blueprint, error) {
	taskID := strings.TrimSpace(req.TaskID)
	clientTaskID := taskID != ""
	if taskID == "" {
		taskID = uuid.NewString()
	}
	log := s.log.With("task_id", taskID)

	ctx, span := s.tracer.Start(ctx, "choreography.generate",
		trace.WithAttributes(attribute.String("task_id", taskID)))
	defer span.End()

	// A client-supplied task ID makes the call idempotent: a task that was
	// already generated is served from its stored document, never recomputed
	// or re-enqueued.
	if clientTaskID && s.blueprints != nil {
		existing, err := s.storedBlueprint(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.Info("task already generated, returning stored blueprint")
			return existing, nil
		}
	}

	if req.Params.TempoPreference != nil {
		// Accepted for forward compatibility; composition does not consult it.
		log.Debug("tempo preference received", "tempo_preference", *req.Params.TempoPreference)
	}

	query, err := s.combineQuery(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates, err := s.matchCandidates(ctx, query, req)
	if err != nil {
		return nil, err
	}

	segments, err := s.composeTimeline(ctx, req.Features.Sections, candidates)
	if err != nil {
		return nil, err
	}

	bp := s.assembler.Assemble(blueprint.AssembleInput{
		TaskID:     taskID,
		AudioPath:  req.AudioPath,
		Features:   req.Features,
		Params:     req.Params,
		Segments:   segments,
		OutputPath: req.OutputPath,
	})
	if err := blueprint.Validate(bp); err != nil {
		return nil, err
	}

	if err := s.handoff(ctx, bp); err != nil {
		return nil, err
	}

	log.Info("blueprint generated",
		"moves", len(bp.Moves),
		"total_duration", bp.TotalDuration,
		"difficulty", bp.DifficultyLevel,
	)
	return bp, nil
}

func (s *choreographyService) combineQuery(ctx context.Context, req GenerateRequest) ([]float32, error) {
	_, span := s.tracer.Start(ctx, "choreography.combine_query")
	defer span.End()
	return s.combiner.Combine(req.PoseEmbedding, req.Features.AudioEmbedding, req.TextEmbedding)
}

func (s *choreographyService) matchCandidates(ctx context.Context, query []float32, req GenerateRequest) ([]types.MatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "choreography.match")
	defer span.End()
	filter := types.SearchFilter{
		Difficulty:  req.Params.Difficulty,
		EnergyLevel: req.Params.EnergyLevel,
		Style:       req.Params.Style,
	}
	candidates, err := s.matcher.Match(ctx, query, filter, req.TopK)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	return candidates, nil
}

func (s *choreographyService) composeTimeline(ctx context.Context, sections []types.MusicSection, candidates []types.MatchResult) ([]types.MoveSegment, error) {
	_, span := s.tracer.Start(ctx, "choreography.compose")
	defer span.End()
	return s.composer.Compose(sections, candidates)
}

// storedBlueprint fetches an earlier generation of the same task, if any.
func (s *choreographyService) storedBlueprint(ctx context.Context, taskID string) (*types.Blueprint, error) {
	ctx, span := s.tracer.Start(ctx, "choreography.stored_blueprint")
	defer span.End()
	doc, err := s.blueprints.GetByTaskID(ctx, nil, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup blueprint: %w", err)
	}
	return types.UnmarshalWire([]byte(doc.Document))
}

// handoff persists the audit copy and enqueues the document for the render
// worker. Both collaborators are optional deployments.
func (s *choreographyService) handoff(ctx context.Context, bp *types.Blueprint) error {
	ctx, span := s.tracer.Start(ctx, "choreography.handoff")
	defer span.End()

	if s.blueprints != nil {
		raw, err := bp.MarshalWire()
		if err != nil {
			return err
		}
		doc := &types.BlueprintDocument{
			TaskID:   bp.TaskID,
			UserID:   bp.GenerationParameters.UserID,
			Document: datatypes.JSON(raw),
		}
		if _, err := s.blueprints.Save(ctx, nil, doc); err != nil {
			return fmt.Errorf("persist blueprint: %w", err)
		}
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, bp); err != nil {
			return err
		}
	}
	return nil
}
