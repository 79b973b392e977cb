package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shouni/igen-gallery/pkg/domain"
	"github.com/shouni/igen-gallery/pkg/gallery"
)

type generationRequest struct {
	Prompt string `json:"prompt"`
}

type recordRequest struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

// handleGenerateImage はプロバイダーへの単純なプロキシです。ギャラリーには追加しません。
func (s *Server) handleGenerateImage(c *gin.Context) {
	var req generationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	imageURL, err := s.deps.Provider.Generate(c.Request.Context(), domain.ImageGenerationRequest{
		Prompt: req.Prompt,
		Width:  s.deps.Width,
		Height: s.deps.Height,
	})
	if err != nil && !errors.Is(err, domain.ErrMalformedResponse) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate image"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": imageURL})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	state, err := s.deps.Generator.Generate(c.Request.Context(), req.Prompt)
	switch {
	case errors.Is(err, domain.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.UserMessage(err)})
		return
	case errors.Is(err, domain.ErrRequestInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": state})
		return
	case err != nil:
		// クライアントが待機をやめただけで、生成は続行している
		_ = c.Error(err)
		c.JSON(http.StatusAccepted, state)
		return
	}

	generationsTotal.WithLabelValues(state.Status.String()).Inc()
	if state.Status == domain.StatusFailed {
		c.JSON(http.StatusBadGateway, state)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleGenerationState(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Generator.State())
}

func (s *Server) handleListGallery(c *gin.Context) {
	all := s.deps.Gallery.All()
	matched := gallery.Filter(all, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"images":  matched,
		"total":   len(all),
		"matched": len(matched),
	})
}

func (s *Server) handleClearGallery(c *gin.Context) {
	galleryClearsTotal.Inc()
	resp := gin.H{"cleared": true}
	if err := s.deps.Gallery.Clear(c.Request.Context()); err != nil {
		// メモリ上は空になっているため警告として返す
		slog.WarnContext(c.Request.Context(), "ギャラリーの永続化クリアに失敗しました", "error", err)
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Selection.State())
}

func (s *Server) handleOpenSelection(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl is required"})
		return
	}
	s.deps.Selection.Open(req.ImageURL, req.Prompt)
	c.JSON(http.StatusOK, s.deps.Selection.State())
}

func (s *Server) handleCloseSelection(c *gin.Context) {
	s.deps.Selection.Close()
	c.JSON(http.StatusOK, s.deps.Selection.State())
}

func (s *Server) handleExport(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl is required"})
		return
	}

	path, err := s.deps.Exporter.Export(c.Request.Context(), domain.GenerationRecord{ImageURL: req.ImageURL, Prompt: req.Prompt})
	if err != nil {
		exportsTotal.WithLabelValues("failed").Inc()
		_ = c.Error(err)
		c.JSON(exportStatus(err), gin.H{"error": domain.UserMessage(err)})
		return
	}
	exportsTotal.WithLabelValues("succeeded").Inc()
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) handleDownload(c *gin.Context) {
	imageURL := c.Query("imageUrl")
	if imageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl is required"})
		return
	}

	img, err := s.deps.Exporter.Download(c.Request.Context(), domain.GenerationRecord{ImageURL: imageURL, Prompt: c.Query("prompt")})
	if err != nil {
		exportsTotal.WithLabelValues("failed").Inc()
		_ = c.Error(err)
		c.JSON(exportStatus(err), gin.H{"error": domain.UserMessage(err)})
		return
	}
	exportsTotal.WithLabelValues("succeeded").Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.Name))
	c.Data(http.StatusOK, img.MimeType, img.Data)
}

func (s *Server) handleContact(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	resp, err := s.deps.Relay.Forward(c.Request.Context(), body)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", resp)
}

func exportStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
