package handlers

import (
	"context"
	"errors"
	"net/http"

	"placement-optimizer/internal/analysis"
	"placement-optimizer/internal/api/models"
	"placement-optimizer/internal/config"
	"placement-optimizer/internal/logger"
	"placement-optimizer/internal/model"

	"github.com/gin-gonic/gin"
)

// maxCandidates caps num_candidates so a single request cannot queue an
// unbounded number of solves.
const maxCandidates = 500

// Sweeper runs a frontier sweep.
type Sweeper interface {
	SweepFrontier(ctx context.Context, template model.AllocationRequest, numPoints int) (*model.Frontier, error)
}

// FrontierHandler handles frontier generation
type FrontierHandler struct {
	sweeper  Sweeper
	defaults config.RequestDefaults
	points   int
}

func NewFrontierHandler(s Sweeper, defaults config.RequestDefaults, points int) *FrontierHandler {
	return &FrontierHandler{sweeper: s, defaults: defaults, points: points}
}

// GenerateOptions handles POST /api/v1/frontier
func (h *FrontierHandler) GenerateOptions(c *gin.Context) {
	var body models.FrontierRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	n := body.NumCandidates
	if n <= 0 {
		n = h.points
	}
	if n > maxCandidates {
		badRequest(c, errors.New("num_candidates must not exceed 500"))
		return
	}

	f, err := h.sweeper.SweepFrontier(c.Request.Context(), body.ToModel(h.defaults), n)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := analysis.Summarize(f)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(summary.NonMonotonic) > 0 {
		logger.FromContext(c.Request.Context()).Infow("non-monotonic frontier", "options", summary.NonMonotonic)
	}

	ranked := analysis.RankByBangForBuck(f.Points)
	ranking := make([]models.RankedOption, len(ranked))
	for i, r := range ranked {
		ranking[i] = models.RankedOption{
			Rank:            r.Rank,
			OptionID:        r.OptionID,
			Premium:         r.Premium,
			AverageCoverage: r.AverageCoverage,
			BangForBuck:     r.BangForBuck,
		}
	}
	c.JSON(http.StatusOK, models.FrontierResponse{Frontier: f, Summary: summary, Ranking: ranking})
}
