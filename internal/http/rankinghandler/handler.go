package rankinghandler

import (
	"net/http"

	"braingarden/internal/services/ranking"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc ranking.IRankingService
}

func New(svc ranking.IRankingService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/ranking", h.top)
	r.POST("/api/ranking", h.submit)
}

// @Summary		Leaderboard
// @Description	Top 10 fastest clear times for one board, ascending.
// @Tags			Ranking
// @Param			set_id			query	string	true	"Set id"
// @Param			win_score		query	int		true	"Win score the runs were played to"
// @Param			condition_type	query	string	true	"Win condition"	Enums(score,total)
// @Success		200	{array}		ranking.RankEntry
// @Failure		400	{object}	ErrorResponse
// @Router			/api/ranking [get]
func (h *Handler) top(ginCtx *gin.Context) {
	var q RankingQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	out, err := h.svc.Top(ginCtx.Request.Context(), q.SetID, q.WinScore, q.ConditionType)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

// @Summary		Submit a run
// @Tags			Ranking
// @Param			body	body	SubmitRankBody	true	"Run payload"
// @Success		202
// @Failure		400	{object}	ErrorResponse
// @Router			/api/ranking [post]
func (h *Handler) submit(ginCtx *gin.Context) {
	var body SubmitRankBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	err := h.svc.Submit(ginCtx.Request.Context(), ranking.RankEntry{
		Name:          body.Name,
		Time:          body.Time,
		SetID:         body.SetID,
		WinScore:      body.WinScore,
		ConditionType: body.ConditionType,
	})
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.Status(http.StatusAccepted)
}
