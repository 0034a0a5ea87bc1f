package authhandler

import (
	"errors"
	"net/http"

	"braingarden/internal/services/memoryset"
	"braingarden/internal/services/user"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users user.IUserService
	sets  memoryset.IMemorySetService
}

func New(users user.IUserService, sets memoryset.IMemorySetService) *Handler {
	return &Handler{users: users, sets: sets}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/register", h.register)
	r.POST("/token", h.token)
	r.GET("/api/users/me", h.Middleware(), h.me)
}

// @Summary		Register a new user
// @Tags			Auth
// @Param			body	body	RegisterBody	true	"Credentials"
// @Success		201	{object}	user.UserDTO
// @Failure		409	{object}	ErrorResponse
// @Router			/api/register [post]
func (h *Handler) register(ginCtx *gin.Context) {
	var body RegisterBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	dto, err := h.users.Register(ginCtx.Request.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			ginCtx.JSON(http.StatusConflict, &ErrorResponse{Error: err.Error()})
			return
		}
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, dto)
}

// token issues a bearer token. The body is form-encoded
// (username/password) for compatibility with the OAuth2 password flow
// the web client already speaks.
func (h *Handler) token(ginCtx *gin.Context) {
	username := ginCtx.PostForm("username")
	password := ginCtx.PostForm("password")
	if username == "" || password == "" {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "username and password are required"})
		return
	}

	token, err := h.users.Login(ginCtx.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			ginCtx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: err.Error()})
			return
		}
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) me(ginCtx *gin.Context) {
	u := CurrentUser(ginCtx)
	sets, err := h.sets.ListOwned(ginCtx.Request.Context(), u.ID)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		MemorySets: sets,
	})
}
