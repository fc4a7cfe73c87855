package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"assistantsproxy/internal/core"
	"assistantsproxy/internal/metrics"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
)

const upstreamErrorMessage = "upstream service error"

// respondWithError returns an error response
func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// errorStatus classifies err into an HTTP status and a client-safe message.
func errorStatus(err error) (int, string) {
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		return http.StatusBadRequest, appErr.Message
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= http.StatusBadRequest && apiErr.HTTPStatusCode < http.StatusInternalServerError {
			return apiErr.HTTPStatusCode, apiErr.Message
		}
		return http.StatusBadGateway, upstreamErrorMessage
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadGateway, upstreamErrorMessage
	}

	return http.StatusInternalServerError, "internal server error"
}

// bindAssistantRequest reads the routing fields of the query and the optional JSON body.
func bindAssistantRequest(c *gin.Context, basePath string) (*core.AssistantRequest, error) {
	req := &core.AssistantRequest{BasePath: basePath}

	if err := c.ShouldBindQuery(&req.Query); err != nil {
		return nil, err
	}

	if c.Request.Body == nil {
		return req, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		if err := sonic.Unmarshal(body, &req.Body); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// recordListingResult records a listing outcome in both stats and Prometheus.
func (s *Server) recordListingResult(success bool, startTime time.Time, endpoint, version string, assistants int) {
	result := core.ResultLabelFailure
	if success {
		result = core.ResultLabelSuccess
		metrics.RecordSuccessWithMetrics(s.metricsService, startTime, endpoint, version, assistants)
	} else {
		metrics.RecordFailureWithMetrics(s.metricsService, startTime, endpoint, version)
	}
	s.collector.RecordListing(endpoint, version, result, assistants, time.Since(startTime))
}
