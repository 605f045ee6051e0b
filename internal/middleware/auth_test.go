package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/estatex/wallet-ledger/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(zap.NewNop()))

	protected := router.Group("/", AuthMiddleware(jwtService, zap.NewNop()))
	protected.GET("/me", func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.String(http.StatusOK, userID)
	})
	protected.GET("/admin", RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := auth.NewJWTService("secret", "wallet-ledger")
	router := setupRouter(jwtService)

	userToken, err := jwtService.GenerateToken("user-1", auth.RoleUser)
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateToken("admin-1", auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name           string
		path           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing header",
			path:           "/me",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong scheme",
			path:           "/me",
			header:         "Basic abc",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			path:           "/me",
			header:         "Bearer nope",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "valid token sets the user",
			path:           "/me",
			header:         "Bearer " + userToken,
			expectedStatus: http.StatusOK,
			expectedBody:   "user-1",
		},
		{
			name:           "user cannot reach admin route",
			path:           "/admin",
			header:         "Bearer " + userToken,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "admin reaches admin route",
			path:           "/admin",
			header:         "Bearer " + adminToken,
			expectedStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}
