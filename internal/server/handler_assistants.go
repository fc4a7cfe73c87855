package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// listAssistants serves a listing route mounted at basePath.
func (s *Server) listAssistants(basePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		req, err := bindAssistantRequest(c, basePath)
		if err != nil {
			s.recordListingResult(false, startTime, "", "", 0)
			respondWithError(c, http.StatusBadRequest, "invalid request")
			return
		}

		result, err := s.assistants.Fetch(c.Request.Context(), req)
		if err != nil {
			s.recordListingResult(false, startTime, req.Query.Endpoint, "", 0)
			status, message := errorStatus(err)
			if status >= http.StatusInternalServerError {
				s.config.Logger.Error("[%s] list assistants failed: %v", getRequestID(c), err)
			} else {
				s.config.Logger.Warn("[%s] list assistants rejected: %v", getRequestID(c), err)
			}
			respondWithError(c, status, message)
			return
		}

		s.recordListingResult(true, startTime, result.Endpoint.String(), result.Version, len(result.List.Data))
		s.config.Logger.Debug("[%s] listed %d assistants from %s (%s)",
			getRequestID(c), len(result.List.Data), result.Endpoint, result.Version)
		c.JSON(http.StatusOK, result.List)
	}
}

func (s *Server) getEndpoints(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, ok, err := s.configStore.GetEndpointsConfig(ctx)
	if err != nil {
		s.config.Logger.Error("[%s] read endpoints config failed: %v", getRequestID(c), err)
		respondWithError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok {
		if cfg, err = s.publishEndpointsConfig(ctx); err != nil {
			s.config.Logger.Error("[%s] publish endpoints config failed: %v", getRequestID(c), err)
			respondWithError(c, http.StatusInternalServerError, "internal server error")
			return
		}
	}
	c.JSON(http.StatusOK, cfg)
}
