package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.RegisteredClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newRouter(audience string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", JWTMiddleware(testSecret, audience), func(c *gin.Context) {
		userID, _ := GetUserID(c.Request.Context())
		c.String(http.StatusOK, userID)
	})
	return router
}

func TestJWTMiddleware(t *testing.T) {
	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{"facecheck"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noSubject := valid
	noSubject.Subject = ""

	cases := []struct {
		name     string
		header   string
		audience string
		status   int
		body     string
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signToken(t, valid, jwt.SigningMethodHS256, []byte(testSecret)), status: http.StatusOK, body: "user-1"},
		{name: "valid audience", header: "Bearer " + signToken(t, valid, jwt.SigningMethodHS256, []byte(testSecret)), audience: "facecheck", status: http.StatusOK, body: "user-1"},
		{name: "wrong audience", header: "Bearer " + signToken(t, valid, jwt.SigningMethodHS256, []byte(testSecret)), audience: "other", status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, expired, jwt.SigningMethodHS256, []byte(testSecret)), status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + signToken(t, valid, jwt.SigningMethodHS256, []byte("other")), status: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + signToken(t, noSubject, jwt.SigningMethodHS256, []byte(testSecret)), status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			newRouter(tc.audience).ServeHTTP(resp, req)

			if resp.Code != tc.status {
				t.Fatalf("expected status %d, got %d (%s)", tc.status, resp.Code, resp.Body.String())
			}
			if tc.body != "" && resp.Body.String() != tc.body {
				t.Fatalf("expected body %q, got %q", tc.body, resp.Body.String())
			}
		})
	}
}
