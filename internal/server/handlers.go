package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"aitex/internal/core"
	"aitex/internal/util"
	"aitex/internal/validate"

	"github.com/gin-gonic/gin"
)

const (
	imageFormField        = "image"
	contentTypeMultipart  = "multipart/form-data"
	errorCodeNotFound     = "NOT_FOUND"
	errorCodeBadRequest   = "BAD_REQUEST"
	errorCodeBodyTooLarge = "BODY_TOO_LARGE"
)

// recognizeRequest is the JSON form of an upload.
type recognizeRequest struct {
	ImageData string `json:"image_data" binding:"required"`
}

// configUpdate carries the fields a client wants to change.
// Absent fields keep their current value.
type configUpdate struct {
	Enabled      *bool   `json:"enabled"`
	Provider     *string `json:"provider"`
	APIBaseURL   *string `json:"api_url"`
	APIKey       *string `json:"api_key"`
	ModelName    *string `json:"model_name"`
	SystemPrompt *string `json:"system_prompt"`
}

func (u configUpdate) applyTo(cfg core.RecognitionConfig) core.RecognitionConfig {
	if u.Enabled != nil {
		cfg.Enabled = *u.Enabled
	}
	if u.Provider != nil {
		cfg.Provider = *u.Provider
	}
	if u.APIBaseURL != nil {
		cfg.APIBaseURL = *u.APIBaseURL
	}
	// An empty or masked key is what GET /v1/config hands out; keep the stored one.
	if u.APIKey != nil && *u.APIKey != "" && *u.APIKey != util.MaskSecret(cfg.APIKey) {
		cfg.APIKey = *u.APIKey
	}
	if u.ModelName != nil {
		cfg.ModelName = *u.ModelName
	}
	if u.SystemPrompt != nil {
		cfg.SystemPrompt = *u.SystemPrompt
	}
	return cfg
}

func maskedConfig(cfg core.RecognitionConfig) core.RecognitionConfig {
	cfg.APIKey = util.MaskSecret(cfg.APIKey)
	return cfg
}

func (s *Server) recognize(c *gin.Context) {
	raw, err := s.readImage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := s.service.Recognize(c.Request.Context(), raw)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// readImage accepts a multipart upload, a JSON body with base64 data or the raw image bytes.
func (s *Server) readImage(c *gin.Context) ([]byte, error) {
	contentType := c.ContentType()

	switch {
	case strings.HasPrefix(contentType, contentTypeMultipart):
		fileHeader, err := c.FormFile(imageFormField)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("multipart field %q is required", imageFormField), err)
		}
		file, err := fileHeader.Open()
		if err != nil {
			return nil, badRequest("failed to open uploaded image", err)
		}
		defer func() { _ = file.Close() }()
		return io.ReadAll(io.LimitReader(file, core.MaxImageSizeBytes+1))

	case contentType == core.ContentTypeJSON:
		var request recognizeRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, badRequest("request body must contain image_data", err)
		}
		return validate.NewImageValidator().DecodeImageInput(request.ImageData)

	default:
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, badRequest("request body is empty", nil)
		}
		return raw, nil
	}
}

func (s *Server) getRecognition(c *gin.Context) {
	id := c.Param("id")
	result, found := s.service.LookupResult(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("recognition %s not found", id), "code": errorCodeNotFound})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, maskedConfig(s.service.CurrentConfig()))
}

func (s *Server) putConfig(c *gin.Context) {
	var update configUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondWithError(c, badRequest("invalid configuration body", err))
		return
	}

	cfg := update.applyTo(s.service.CurrentConfig())
	if err := s.service.SaveConfig(c.Request.Context(), cfg); err != nil {
		s.config.Logger.Warn("Configuration update from %s rejected: %v", clientName(c), err)
		respondWithError(c, err)
		return
	}

	s.config.Logger.Info("Configuration updated by %s: %s via %s, key %s",
		clientName(c), cfg.ModelName, cfg.Provider, util.MaskSecret(cfg.APIKey))
	c.JSON(http.StatusOK, maskedConfig(cfg))
}

// validateConfig checks the active configuration, or the active one with the
// body's fields applied, without saving anything.
func (s *Server) validateConfig(c *gin.Context) {
	var update configUpdate
	if err := c.ShouldBindJSON(&update); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(c, badRequest("invalid configuration body", err))
		return
	}

	cfg := update.applyTo(s.service.CurrentConfig())
	if err := s.service.ValidateConnection(c.Request.Context(), cfg); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "provider": cfg.Provider, "model": cfg.ModelName})
}

// requestError is a client mistake detected before the pipeline runs.
type requestError struct {
	message string
	cause   error
}

func (e *requestError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *requestError) Unwrap() error { return e.cause }

func badRequest(message string, cause error) error {
	return &requestError{message: message, cause: cause}
}

// statusForCode maps a pipeline error code to an HTTP status.
func statusForCode(code string) int {
	switch code {
	case core.ErrCodeConfig:
		return http.StatusBadRequest
	case core.ErrCodeDecode:
		return http.StatusUnprocessableEntity
	case core.ErrCodeNetwork, core.ErrCodeHTTP, core.ErrCodeParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError writes {"error", "code"} for err.
// Upstream 4xx bodies are passed through; 5xx bodies are not.
func respondWithError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit),
			"code":  errorCodeBodyTooLarge,
		})
		return
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": reqErr.Error(), "code": errorCodeBadRequest})
		return
	}

	var appErr *core.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": appErr.Error(), "code": appErr.Code}

	var statusErr *core.HTTPStatusError
	if errors.As(err, &statusErr) {
		body["upstream_status"] = statusErr.StatusCode
		if statusErr.StatusCode >= http.StatusInternalServerError {
			body["error"] = fmt.Sprintf("upstream service error (status %d)", statusErr.StatusCode)
		}
	}

	c.JSON(statusForCode(appErr.Code), body)
}
