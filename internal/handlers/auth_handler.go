package handlers

import (
	"net/http"
	"strings"

	"github.com/estatex/wallet-ledger/internal/auth"
	"github.com/estatex/wallet-ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// AuthHandler re-issues tokens. Login and registration belong to the
// platform's user service.
type AuthHandler struct {
	jwtService *auth.JWTService
}

func NewAuthHandler(jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
	}
}

// RefreshToken godoc
// @Summary Refresh JWT token
// @Description Generate a new JWT token using the current valid token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RefreshTokenResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	tokenString := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Success: false,
			Message: "Authorization header is required",
			Error:   "missing authorization header",
		})
		return
	}

	newToken, err := h.jwtService.RefreshToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Success: false,
			Message: "Failed to refresh token",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Token refreshed successfully",
		Data:    dto.RefreshTokenResponse{Token: newToken},
	})
}
