package problemhandler

import (
	"net/http"
	"strings"

	"braingarden/internal/battle"
	"braingarden/internal/services/memoryset"
	"braingarden/internal/services/problem"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc   problem.IProblemService
	coord *battle.Coordinator
}

func New(svc problem.IProblemService, coord *battle.Coordinator) *Handler {
	return &Handler{svc: svc, coord: coord}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/problem", h.generate)
}

// @Summary		Generate a quiz question
// @Description	Deterministic for a given seed, so both battle clients stay on the same question.
// @Tags			Problems
// @Param			room_id			query	string	false	"Use the room's set and current seed"
// @Param			set_id			query	string	false	"Explicit set id"
// @Param			seed			query	string	false	"Explicit seed"
// @Param			wrong_history	query	string	false	"Comma-separated missed words (review mode)"
// @Param			current_index	query	int		false	"Question index (sequential mode)"
// @Success		200	{object}	problem.Problem
// @Router			/api/problem [get]
func (h *Handler) generate(ginCtx *gin.Context) {
	var q ProblemQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	setID := q.SetID
	seed := q.Seed
	// A live room overrides both: its set reference and, when the caller
	// did not pin a seed, its current round seed.
	if q.RoomID != "" {
		if roomSet, roomSeed, ok := h.coord.RoomSeed(q.RoomID); ok {
			setID = roomSet
			if seed == "" {
				seed = roomSeed
			}
		}
	}
	if setID == "" {
		setID = memoryset.DefaultSetID
	}

	var wrongHistory []string
	if q.WrongHistory != "" {
		wrongHistory = strings.Split(q.WrongHistory, ",")
	}

	out, err := h.svc.Generate(ginCtx.Request.Context(), problem.GenerateParams{
		SetID:        setID,
		Seed:         seed,
		WrongHistory: wrongHistory,
		CurrentIndex: q.CurrentIndex,
	})
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}
