package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/repos"
	"github.com/movecraft/choreo-backend/internal/search"
)

type CorpusHandler struct {
	log   *logger.Logger
	index *search.Index
	moves repos.MoveRepo
}

func NewCorpusHandler(log *logger.Logger, index *search.Index, moves repos.MoveRepo) *CorpusHandler {
	return &CorpusHandler{
		log:   log.With("handler", "CorpusHandler"),
		index: index,
		moves: moves,
	}
}

// POST /api/corpus/reload
func (h *CorpusHandler) Reload(c *gin.Context) {
	h.index.Invalidate()
	size, err := h.index.CorpusSize(c.Request.Context())
	if err != nil {
		h.log.Error("corpus reload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "corpus_reload_failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"corpus_size": size})
}

// GET /api/corpus/stats
//
// Reports the served snapshot alongside the stored row count, so a snapshot
// that has drifted from the table (pending reload) is visible.
func (h *CorpusHandler) Stats(c *gin.Context) {
	stored, err := h.moves.Count(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("corpus count failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "corpus_stats_failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index":        h.index.Stats(),
		"stored_moves": stored,
	})
}
