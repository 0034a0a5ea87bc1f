package authhandler

import (
	"net/http"
	"strings"

	"braingarden/internal/services/user"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// Middleware authenticates the Bearer token and loads the caller into the
// gin context. Aborts 401 on any failure.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(ginCtx *gin.Context) {
		header := ginCtx.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			ginCtx.AbortWithStatusJSON(http.StatusUnauthorized, &ErrorResponse{Error: "missing bearer token"})
			return
		}

		username, err := h.users.VerifyToken(token)
		if err != nil {
			ginCtx.AbortWithStatusJSON(http.StatusUnauthorized, &ErrorResponse{Error: err.Error()})
			return
		}

		dto, err := h.users.GetByUsername(ginCtx.Request.Context(), username)
		if err != nil {
			ginCtx.AbortWithStatusJSON(http.StatusUnauthorized, &ErrorResponse{Error: err.Error()})
			return
		}

		ginCtx.Set(currentUserKey, dto)
		ginCtx.Next()
	}
}

// CurrentUser returns the authenticated caller. Only valid on routes
// behind Middleware.
func CurrentUser(ginCtx *gin.Context) *user.UserDTO {
	v, _ := ginCtx.Get(currentUserKey)
	dto, _ := v.(*user.UserDTO)
	return dto
}
