package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront/internal/model"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetUserRole(c)})
	})
	r.GET("/admin", AuthMiddleware(secret), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()
	valid := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID.String(), "role": model.RoleCustomer, "exp": exp})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": userID.String(), "exp": time.Now().Add(-time.Minute).Unix(),
		}), http.StatusUnauthorized},
		{"no expiry", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID.String()}), http.StatusUnauthorized},
		{"other algorithm", "Bearer " + sign(t, jwt.SigningMethodHS512, jwt.MapClaims{
			"sub": userID.String(), "exp": exp,
		}), http.StatusUnauthorized},
		{"subject not a uuid", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42", "exp": exp}), http.StatusUnauthorized},
	}
	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, "/me", tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), userID.String())
				assert.Contains(t, w.Body.String(), model.RoleCustomer)
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	r := newRouter()
	exp := time.Now().Add(time.Hour).Unix()

	customer := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "role": model.RoleCustomer, "exp": exp})
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", "Bearer "+customer).Code)

	admin := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "role": model.RoleAdmin, "exp": exp})
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", "Bearer "+admin).Code)
}
