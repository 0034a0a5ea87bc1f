package roomhandler

import (
	"errors"
	"net/http"

	"braingarden/internal/battle"
	"braingarden/internal/services/memoryset"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	coord *battle.Coordinator
	sets  memoryset.IMemorySetService
}

func New(coord *battle.Coordinator, sets memoryset.IMemorySetService) *Handler {
	return &Handler{coord: coord, sets: sets}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/rooms", h.list)
	r.POST("/api/rooms", h.create)
	r.DELETE("/api/rooms/:id", h.delete)
	r.POST("/api/rooms/verify", h.verify)
}

func (h *Handler) list(ginCtx *gin.Context) {
	ginCtx.JSON(http.StatusOK, h.coord.ListRooms())
}

// @Summary		Create a battle room
// @Description	Opens a two-player room; timing parameters are copied from the referenced memory set.
// @Tags			Rooms
// @Param			body	body		CreateRoomBody	true	"Room payload"
// @Success		201		{object}	CreateRoomResponse
// @Failure		409		{object}	ErrorResponse
// @Router			/api/rooms [post]
func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateRoomBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	if body.ConditionType == "" {
		body.ConditionType = "score"
	}

	// Per-question timing follows the chosen set.
	memorizeTime, questionsPerRound, ok := h.sets.Timing(ginCtx.Request.Context(), body.MemorySetID)
	if !ok {
		memorizeTime, questionsPerRound = 3, 1
	}

	info, ownerToken, err := h.coord.CreateRoom(battle.CreateRoomParams{
		Name:              body.Name,
		HostName:          body.HostName,
		Password:          body.Password,
		WinScore:          body.WinScore,
		ConditionType:     body.ConditionType,
		MemorySetID:       body.MemorySetID,
		MemorizeTime:      memorizeTime,
		QuestionsPerRound: questionsPerRound,
	})
	if err != nil {
		ginCtx.JSON(http.StatusConflict, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, CreateRoomResponse{
		Message:    "Room created",
		Room:       info,
		OwnerToken: ownerToken,
	})
}

// delete removes a room. Allowed with the owner token, or for anyone
// once the room is empty.
func (h *Handler) delete(ginCtx *gin.Context) {
	err := h.coord.DeleteRoom(ginCtx.Param("id"), ginCtx.Query("token"))
	switch {
	case errors.Is(err, battle.ErrRoomNotFound):
		ginCtx.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
	case errors.Is(err, battle.ErrForbidden):
		ginCtx.JSON(http.StatusForbidden, &ErrorResponse{Error: err.Error()})
	case err != nil:
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
	default:
		ginCtx.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
	}
}

func (h *Handler) verify(ginCtx *gin.Context) {
	var body VerifyPasswordBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	if !h.coord.VerifyPassword(body.RoomID, body.Password) {
		ginCtx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: "wrong password"})
		return
	}
	ginCtx.JSON(http.StatusOK, gin.H{"message": "OK"})
}
