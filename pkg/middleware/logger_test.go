package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/nao1215/hawebhook/pkg/httpclient"
)

// TestRequestLogger はRequestLoggerミドルウェアを検証する。
func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("リクエストIDが生成されヘッダーとコンテキストに設定されること", func(t *testing.T) {
		t.Parallel()

		var fromGin, fromCtx string
		router := gin.New()
		router.Use(RequestLogger(logr.Discard()))
		router.GET("/health", func(c *gin.Context) {
			fromGin = GetRequestID(c)
			fromCtx = httpclient.RequestIDFrom(c.Request.Context())
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		header := w.Header().Get(httpclient.HeaderRequestID)
		if _, err := uuid.Parse(header); err != nil {
			t.Fatalf("%s = %q はUUIDではない: %v", httpclient.HeaderRequestID, header, err)
		}
		if fromGin != header || fromCtx != header {
			t.Errorf("GetRequestID=%q, ctx=%q, header=%q", fromGin, fromCtx, header)
		}
	})

	t.Run("受信したX-Request-IDを引き継ぐこと", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(RequestLogger(logr.Discard()))
		router.GET("/health", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(httpclient.HeaderRequestID, "caller-supplied")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get(httpclient.HeaderRequestID); got != "caller-supplied" {
			t.Errorf("%s = %q, want %q", httpclient.HeaderRequestID, got, "caller-supplied")
		}
	})

	t.Run("ミドルウェア未適用の場合GetRequestIDは空文字列を返すこと", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if got := GetRequestID(c); got != "" {
			t.Errorf("GetRequestID() = %q, want empty", got)
		}
	})
}
