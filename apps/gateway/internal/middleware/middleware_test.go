package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"HobbyChat/config"
	"HobbyChat/consts"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var mwOnce sync.Once

func setupMiddlewareTest() {
	mwOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		logger.ReplaceGlobal(zap.NewNop())
		util.InitJWT(config.DefaultJWTConfig())
		RegisterValidators()
	})
}

type envelope struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestJWTAuthMiddleware(t *testing.T) {
	setupMiddlewareTest()

	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(), func(c *gin.Context) {
		uid, _ := GetUserUUID(c)
		did, _ := GetDeviceID(c)
		c.String(http.StatusOK, uid+"|"+did+"|"+ctxmeta.UserUUID(c.Request.Context()))
	})

	valid, err := util.GenerateToken("alice", "phone")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantHTTP int
		wantCode int32
	}{
		{name: "missing_header", header: "", wantHTTP: http.StatusUnauthorized, wantCode: consts.CodeUnauthorized},
		{name: "wrong_scheme", header: "Basic abc", wantHTTP: http.StatusUnauthorized, wantCode: consts.CodeUnauthorized},
		{name: "garbage_token", header: "Bearer nope", wantHTTP: http.StatusUnauthorized, wantCode: consts.CodeInvalidToken},
		{name: "valid", header: "Bearer " + valid, wantHTTP: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantHTTP, w.Code)
			if tt.wantHTTP == http.StatusOK {
				assert.Equal(t, "alice|phone|alice", w.Body.String())
				return
			}
			assert.Equal(t, tt.wantCode, decodeEnvelope(t, w).Code)
		})
	}
}

func TestJWTAuthMiddleware_Expired(t *testing.T) {
	setupMiddlewareTest()

	cfg := config.DefaultJWTConfig()
	cfg.TokenTTL = -time.Minute
	util.InitJWT(cfg)
	expired, err := util.GenerateToken("alice", "phone")
	util.InitJWT(config.DefaultJWTConfig())
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.EqualValues(t, consts.CodeTokenExpired, decodeEnvelope(t, w).Code)
}

func TestRateLimiter_LocalFallback(t *testing.T) {
	setupMiddlewareTest()

	limiter := NewRateLimiter(nil, 1, 2)
	r := gin.New()
	r.Use(IPRateLimitMiddleware(limiter, ""))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"), "buckets are per ip")
}

func TestUserRateLimitMiddleware(t *testing.T) {
	setupMiddlewareTest()

	limiter := NewRateLimiter(nil, 1, 1)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-User"); uid != "" {
			c.Set(ctxmeta.GinKeyUserUUID, uid)
		}
	}, UserRateLimitMiddleware(limiter))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("alice"))
	assert.Equal(t, http.StatusTooManyRequests, hit("alice"))
	assert.Equal(t, http.StatusOK, hit("bob"))
	assert.Equal(t, http.StatusOK, hit(""), "anonymous requests are not user limited")
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(nil, 0, 0)
	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow(context.Background(), "k"))
	}
}

func TestGetClientIP(t *testing.T) {
	setupMiddlewareTest()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "real_ip", headers: map[string]string{"X-Real-IP": "1.2.3.4", "X-Forwarded-For": "5.6.7.8"}, want: "1.2.3.4"},
		{name: "forwarded_first_hop", headers: map[string]string{"X-Forwarded-For": "5.6.7.8, 9.9.9.9"}, want: "5.6.7.8"},
		{name: "client_ip_header", headers: map[string]string{"X-Client-IP": "8.8.8.8"}, want: "8.8.8.8"},
		{name: "invalid_client_ip_ignored", headers: map[string]string{"X-Client-IP": "nope"}, want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(c))
		})
	}
}

func TestCorsMiddleware(t *testing.T) {
	setupMiddlewareTest()

	r := gin.New()
	r.Use(CorsMiddleware([]string{"https://hobby.chat"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed_origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://hobby.chat")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "https://hobby.chat", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign_origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", "https://hobby.chat")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestGinRecovery(t *testing.T) {
	setupMiddlewareTest()

	r := gin.New()
	r.Use(GinRecovery(true))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.EqualValues(t, consts.CodeInternalError, decodeEnvelope(t, w).Code)
}

func TestTimeoutMiddleware(t *testing.T) {
	setupMiddlewareTest()

	r := gin.New()
	r.Use(TimeoutMiddleware(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.EqualValues(t, consts.CodeTimeoutError, decodeEnvelope(t, w).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, "ok", w.Body.String())
}

func TestHobbiesValidator(t *testing.T) {
	setupMiddlewareTest()

	type req struct {
		Hobbies []string `json:"hobbies" binding:"hobbies"`
	}
	r := gin.New()
	r.POST("/h", func(c *gin.Context) {
		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			if IsHobbiesViolation(err) {
				c.Status(http.StatusUnprocessableEntity)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	many := make([]string, MaxHobbies+1)
	for i := range many {
		many[i] = "h"
	}
	manyJSON, err := json.Marshal(map[string][]string{"hobbies": many})
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "valid", body: `{"hobbies":["Chess","Reading"]}`, want: http.StatusOK},
		{name: "empty_allowed", body: `{"hobbies":[]}`, want: http.StatusOK},
		{name: "too_long_item", body: `{"hobbies":["` + strings.Repeat("x", MaxHobbyLength+1) + `"]}`, want: http.StatusUnprocessableEntity},
		{name: "newline", body: `{"hobbies":["a\nb"]}`, want: http.StatusUnprocessableEntity},
		{name: "too_many", body: string(manyJSON), want: http.StatusUnprocessableEntity},
		{name: "malformed", body: `{"hobbies":`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/h", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
