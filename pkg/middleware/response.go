package middleware

import "github.com/gin-gonic/gin"

// ErrorResponse はすべてのエラーレスポンスで共通のJSON構造。
type ErrorResponse struct {
	// Status は常に"error"。
	Status string `json:"status"`
	// Error はエラーの概要。
	Error string `json:"error"`
	// Details は補足情報。ない場合はnullになる。
	Details *string `json:"details"`
}

// RespondError はErrorResponse形式でレスポンスを返し、後続のハンドラを中断する。
// detailsが空の場合はnullとして出力する。
func RespondError(c *gin.Context, status int, message, details string) {
	resp := ErrorResponse{
		Status: "error",
		Error:  message,
	}
	if details != "" {
		resp.Details = &details
	}
	c.AbortWithStatusJSON(status, resp)
}
