package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse writes the success envelope {status, message, data}
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError writes the error envelope and aborts the remaining handlers.
// A nil err falls back to the message.
func JSONError(c *gin.Context, status int, err error, message string) {
	detail := message
	if err != nil {
		detail = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   detail,
	})
}
