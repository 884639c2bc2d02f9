package middleware

import (
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ValidatorConfig holds validation configuration for submitted runs.
type ValidatorConfig struct {
	MaxBodySize   int64 // Maximum request body size in bytes
	MaxTasks      int   // Maximum tasks allowed in one submitted task set
	MaxNumCores   int   // Maximum cores allowed in one run's core config
	MaxHorizon    int64 // Maximum simulated ticks (endTime - startTime)
	MaxNameLength int   // Maximum run name length
}

// DefaultValidatorConfig returns safe defaults
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxBodySize:   1 << 20, // 1MB
		MaxTasks:      500,
		MaxNumCores:   64,
		MaxHorizon:    1_000_000,
		MaxNameLength: 256,
	}
}

// Validator performs request validation
type Validator struct {
	config ValidatorConfig
}

// NewValidator creates a new validator with the given config
func NewValidator(config ValidatorConfig) *Validator {
	return &Validator{config: config}
}

// ValidateTaskCount rejects task sets too large to simulate within a
// single request's time budget.
func (v *Validator) ValidateTaskCount(numTasks int) error {
	if numTasks == 0 {
		return &ValidationError{Field: "taskset", Message: "task set must not be empty"}
	}
	if numTasks > v.config.MaxTasks {
		return &ValidationError{Field: "taskset", Message: "task set exceeds maximum task count"}
	}
	return nil
}

// ValidateCoreConfig checks the requested core-set configuration is sane
// before it reaches internal/core.NewSet.
func (v *Validator) ValidateCoreConfig(numCores, numFaulty int) error {
	if numCores <= 0 {
		return &ValidationError{Field: "config.numCores", Message: "numCores must be positive"}
	}
	if numCores > v.config.MaxNumCores {
		return &ValidationError{Field: "config.numCores", Message: "numCores exceeds maximum"}
	}
	if numFaulty < 0 || numFaulty > numCores {
		return &ValidationError{Field: "config.numFaulty", Message: "numFaulty must be between 0 and numCores"}
	}
	return nil
}

// ValidateHorizon checks the requested simulation horizon is within bounds.
func (v *Validator) ValidateHorizon(startTime, endTime int64) error {
	if endTime <= startTime {
		return &ValidationError{Field: "endTime", Message: "endTime must be greater than startTime"}
	}
	if endTime-startTime > v.config.MaxHorizon {
		return &ValidationError{Field: "endTime", Message: "simulation horizon exceeds maximum"}
	}
	return nil
}

// ValidateName checks a run's display name.
func (v *Validator) ValidateName(name string) error {
	if len(name) > v.config.MaxNameLength {
		return &ValidationError{
			Field:   "name",
			Message: "name exceeds maximum length",
		}
	}
	return nil
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// BodySizeLimitMiddleware limits request body size
func BodySizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")
		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")
		// Enable XSS filter
		c.Header("X-XSS-Protection", "1; mode=block")
		// Strict Transport Security (enable in production with HTTPS)
		// c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		
		c.Next()
	}
}

// RequestIDMiddleware adds request ID for tracing
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// generateRequestID creates a simple request ID
func generateRequestID() string {
	// Simple implementation - in production use UUID or similar
	return "req-" + randomString(16)
}

// randomString generates a random alphanumeric string
func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
