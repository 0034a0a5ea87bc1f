package sethandler

import (
	"errors"
	"net/http"

	"braingarden/internal/http/authhandler"
	"braingarden/internal/services/memoryset"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc  memoryset.IMemorySetService
	auth *authhandler.Handler
}

func New(svc memoryset.IMemorySetService, auth *authhandler.Handler) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) Register(r gin.IRoutes) {
	mw := h.auth.Middleware()
	r.GET("/api/sets", mw, h.listAvailable)
	r.GET("/api/my-sets", mw, h.listOwned)
	r.POST("/api/my-sets", mw, h.create)
	r.GET("/api/my-sets/:id", mw, h.get)
	r.DELETE("/api/my-sets/:id", mw, h.delete)
}

// listAvailable serves the room-creation picker: built-in and official
// sets plus the caller's own, never other users'.
func (h *Handler) listAvailable(ginCtx *gin.Context) {
	u := authhandler.CurrentUser(ginCtx)
	out, err := h.svc.ListAvailable(ginCtx.Request.Context(), u.ID)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

func (h *Handler) listOwned(ginCtx *gin.Context) {
	u := authhandler.CurrentUser(ginCtx)
	out, err := h.svc.ListOwned(ginCtx.Request.Context(), u.ID)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateSetBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	applyDefaults(&body)

	u := authhandler.CurrentUser(ginCtx)
	dto, err := h.svc.Create(ginCtx.Request.Context(), u.ID, memoryset.CreateSetParams{
		Title:             body.Title,
		Words:             body.Words,
		MemorizeTime:      body.MemorizeTime,
		AnswerTime:        body.AnswerTime,
		QuestionsPerRound: body.QuestionsPerRound,
		WinScore:          body.WinScore,
		ConditionType:     body.ConditionType,
		OrderType:         body.OrderType,
	})
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, dto)
}

func (h *Handler) get(ginCtx *gin.Context) {
	u := authhandler.CurrentUser(ginCtx)
	dto, err := h.svc.Get(ginCtx.Request.Context(), u.ID, ginCtx.Param("id"))
	if err != nil {
		if errors.Is(err, memoryset.ErrSetNotFound) {
			ginCtx.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
			return
		}
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, dto)
}

func (h *Handler) delete(ginCtx *gin.Context) {
	u := authhandler.CurrentUser(ginCtx)
	err := h.svc.Delete(ginCtx.Request.Context(), u.ID, ginCtx.Param("id"))
	if err != nil {
		if errors.Is(err, memoryset.ErrSetNotFound) {
			ginCtx.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
			return
		}
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, gin.H{"message": "Set deleted successfully"})
}

func applyDefaults(body *CreateSetBody) {
	if body.MemorizeTime == 0 {
		body.MemorizeTime = 3
	}
	if body.AnswerTime == 0 {
		body.AnswerTime = 10
	}
	if body.QuestionsPerRound == 0 {
		body.QuestionsPerRound = 1
	}
	if body.WinScore == 0 {
		body.WinScore = 10
	}
	if body.ConditionType == "" {
		body.ConditionType = "score"
	}
	if body.OrderType == "" {
		body.OrderType = "random"
	}
}
