package response

import "github.com/gin-gonic/gin"

// Detail writes the error envelope every endpoint uses: a single "detail"
// field holding a human-readable message.
func Detail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

// Success writes the fixed acknowledgement body for mutations that return no
// resource.
func Success(c *gin.Context, status int) {
	c.JSON(status, gin.H{"status": "success"})
}
