package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(), gin.CustomRecovery(HandlePanics()))
	return r
}

func TestRequireActor(t *testing.T) {
	r := newRouter()
	r.GET("/who", RequireActor(), func(c *gin.Context) {
		actor, _ := Actor(c)
		c.String(http.StatusOK, actor)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "header present", header: "alice", wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "header trimmed", header: "  bob ", wantStatus: http.StatusOK, wantBody: "bob"},
		{name: "header missing", header: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.header != "" {
				req.Header.Set(ActorHeader, tt.header)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestActor_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := Actor(c)
	assert.False(t, ok)
}

func TestHandlePanics(t *testing.T) {
	r := newRouter()
	r.GET("/error", func(c *gin.Context) { panic(errors.New("boom")) })
	r.GET("/value", func(c *gin.Context) { panic("boom") })

	for _, path := range []string{"/error", "/value"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"kind":"internal","message":"internal server error"}`, w.Body.String())
		})
	}
}
