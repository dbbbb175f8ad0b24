package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the uniform envelope for failed requests. Successful
// responses whose wire shape is part of the public API contract are written
// directly by their handlers.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, ErrorResponse{Code: code, Message: message})
}

// Success returns a plain success payload.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}
