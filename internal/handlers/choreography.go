package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/movecraft/choreo-backend/internal/platform/apierr"
	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/services"
	"github.com/movecraft/choreo-backend/internal/types"
)

type ChoreographyHandler struct {
	log     *logger.Logger
	service services.ChoreographyService
}

func NewChoreographyHandler(log *logger.Logger, service services.ChoreographyService) *ChoreographyHandler {
	return &ChoreographyHandler{
		log:     log.With("handler", "ChoreographyHandler"),
		service: service,
	}
}

type generateRequestBody struct {
	TaskID        string                 `json:"task_id"`
	AudioPath     string                 `json:"audio_path" binding:"required"`
	Features      types.MusicFeatures    `json:"features" binding:"required"`
	Params        types.GenerationParams `json:"params" binding:"required"`
	PoseEmbedding []float32              `json:"pose_embedding"`
	TextEmbedding []float32              `json:"text_embedding"`
	OutputPath    string                 `json:"output_path" binding:"required"`
	TopK          int                    `json:"top_k"`
}

// POST /api/choreography/generate
func (h *ChoreographyHandler) Generate(c *gin.Context) {
	var body generateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}
	if err := body.Params.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := types.ValidateSections(body.Features.Sections); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bp, err := h.service.Generate(c.Request.Context(), services.GenerateRequest{
		TaskID:        body.TaskID,
		AudioPath:     body.AudioPath,
		Features:      body.Features,
		Params:        body.Params,
		PoseEmbedding: body.PoseEmbedding,
		TextEmbedding: body.TextEmbedding,
		OutputPath:    body.OutputPath,
		TopK:          body.TopK,
	})
	if err != nil {
		status := mapError(err)
		h.log.Error("generation failed", "status", status.Status, "code", status.Code, "error", err)
		c.JSON(status.Status, gin.H{"error": status.Code, "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, bp)
}

// mapError translates the engine's error taxonomy onto HTTP statuses.
func mapError(err error) *apierr.Error {
	var schemaValidation *types.SchemaValidationError
	if errors.As(err, &schemaValidation) {
		return apierr.SchemaValidation(err)
	}
	var noCandidates *types.NoCandidatesError
	if errors.As(err, &noCandidates) {
		return apierr.NoCandidates(err)
	}
	var configuration *types.ConfigurationError
	if errors.As(err, &configuration) {
		return apierr.Configuration(err)
	}
	var indexRuntime *types.IndexRuntimeError
	if errors.As(err, &indexRuntime) {
		return apierr.IndexRuntime(err)
	}
	return apierr.Internal(err)
}
