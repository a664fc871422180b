package handlers

import (
	"net/http"

	"placement-optimizer/internal/api/models"
	"placement-optimizer/internal/logger"
	"placement-optimizer/internal/model"

	"github.com/gin-gonic/gin"
)

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Kind:    string(model.KindValidation),
			Code:    string(model.CodeInvalidRequest),
			Message: err.Error(),
		},
	})
}

// respondError maps the optimizer's error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	e, ok := model.AsError(err)
	if !ok {
		logger.FromContext(c.Request.Context()).Errorw("unclassified error", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()},
		})
		return
	}
	_ = c.Error(err)
	c.JSON(statusFor(e), models.ErrorResponse{
		Error: models.ErrorDetail{
			Kind:    string(e.Kind),
			Code:    string(e.Code),
			Message: e.Message,
			Details: e.Details,
		},
	})
}

func statusFor(e *model.Error) int {
	switch e.Kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindFeasibility, model.KindInfeasible, model.KindDegenerateBaseline:
		return http.StatusUnprocessableEntity
	case model.KindSolver:
		if e.Code == model.CodeSolverTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
