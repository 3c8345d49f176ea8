package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studentservices-api/internal/common/auth"
	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/metrics"
	"studentservices-api/internal/common/validation"
	"studentservices-api/internal/models"

	"github.com/gin-gonic/gin"
)

const tokenInfoKey = "tokenInfo"

// recovery turns a panic into a logged 500 with the standard error body.
func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic recovered", map[string]interface{}{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"panic":  fmt.Sprint(r),
				})
				s.fail(c, apperrors.NewInternalError(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}

// cors answers preflight requests and echoes allowed origins.
func (s *Server) cors() gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(s.origins))
	for _, o := range s.origins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept-Language")
			c.Header("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"clientIp":   c.ClientIP(),
		}
		if info := tokenInfo(c); info != nil {
			fields["userId"] = info.UserID
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request served", fields)
			return
		}
		s.logger.Debug("request served", fields)
	}
}

func (s *Server) metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// authenticate requires a valid bearer token and stores its claims on the
// context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.fail(c, apperrors.NewAuthenticationError("Authentication credentials were not provided"))
			return
		}
		info, err := s.deps.Tokens.Validate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(tokenInfoKey, info)
		c.Next()
	}
}

func (s *Server) requireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := tokenInfo(c)
		if info == nil || (!info.IsStaff && !info.IsSuperuser) {
			s.fail(c, apperrors.NewPermissionError("Staff access required"))
			return
		}
		c.Next()
	}
}

func (s *Server) requireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := tokenInfo(c)
		if info == nil || !info.IsSuperuser {
			s.fail(c, apperrors.NewPermissionError("Administrator access required"))
			return
		}
		c.Next()
	}
}

func tokenInfo(c *gin.Context) *auth.TokenInfo {
	v, ok := c.Get(tokenInfoKey)
	if !ok {
		return nil
	}
	info, _ := v.(*auth.TokenInfo)
	return info
}

// fail writes the standard error envelope and stops the handler chain.
func (s *Server) fail(c *gin.Context, err error) {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	status, body := s.errors.Handle(route, err)
	c.AbortWithStatusJSON(status, body)
}

// bind validates the request body against schema and decodes it into dst.
// It reports false after writing the error response.
func (s *Server) bind(c *gin.Context, schema *validation.Schema, dst interface{}) bool {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, apperrors.NewFieldError("body", "unreadable request body"))
		return false
	}
	if verr := schema.ValidateBytes(body); verr != nil {
		s.fail(c, verr)
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.fail(c, apperrors.NewFieldError("body", "malformed JSON: "+err.Error()))
		return false
	}
	return true
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewFieldError("id", "Invalid id")
	}
	return id, nil
}

// boolQuery parses an optional true/false query parameter.
func boolQuery(c *gin.Context, key string) *bool {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func intQuery(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

func int64Query(c *gin.Context, key string) int64 {
	n, _ := strconv.ParseInt(c.Query(key), 10, 64)
	return n
}

// overlay decodes the body over dst, which already holds the stored
// record, and validates the merged record against schema.
func (s *Server) overlay(c *gin.Context, schema *validation.Schema, dst interface{}) bool {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, apperrors.NewFieldError("body", "unreadable request body"))
		return false
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			s.fail(c, apperrors.NewFieldError("body", "malformed JSON: "+err.Error()))
			return false
		}
	}
	if verr := schema.Validate(dst); verr != nil {
		s.fail(c, verr)
		return false
	}
	return true
}

func (s *Server) reorder(c *gin.Context, fn func(ctx context.Context, updates []models.SortUpdate) error) {
	var body struct {
		Items []models.SortUpdate `json:"items"`
	}
	if !s.bind(c, reorderSchema, &body) {
		return
	}
	if err := fn(c.Request.Context(), body.Items); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated successfully"})
}
