package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にエラーログを出力し、500エラーを返す。
func Recovery(log logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(fmt.Errorf("panic: %v", r), "パニックから回復しました",
					"method", c.Request.Method, "path", c.Request.URL.Path)
				RespondError(c, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
			}
		}()
		c.Next()
	}
}
