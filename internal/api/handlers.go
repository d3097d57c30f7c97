package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// bodyOverhead allows for base64 expansion and the rest of the JSON envelope.
const bodyOverhead = 64 * 1024

// Handler handles paper and chat API requests
type Handler struct {
	app          *app.App
	maxBodyBytes int64
}

// NewHandler creates a new handler
func NewHandler(a *app.App) *Handler {
	maxBytes := a.Fetcher.MaxBytes()
	return &Handler{
		app:          a,
		maxBodyBytes: maxBytes*4/3 + bodyOverhead,
	}
}

// RegisterRoutes registers paper and chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/paper", h.AnalyzePaper)

	r.POST("/papers", h.UploadPaper)
	r.GET("/papers", h.ListPapers)
	r.GET("/papers/:id", h.GetPaper)
	r.DELETE("/papers/:id", h.DeletePaper)

	r.POST("/chat", h.Chat)
	r.GET("/chat/:paperId", h.GetChat)
	r.DELETE("/chat/:paperId", h.ClearChat)
}

type analyzeRequest struct {
	PDFBase64 string `json:"pdfBase64"`
}

type uploadRequest struct {
	Title     string `json:"title"`
	PDFBase64 string `json:"pdfBase64"`
	URL       string `json:"url"`
	ZoteroID  string `json:"zoteroId"`
}

type chatRequest struct {
	PaperID string `json:"paperId"`
	Message string `json:"message"`
}

type chatResponse struct {
	Message models.Message `json:"message"`
	Error   string         `json:"error,omitempty"`
}

type chatState struct {
	PaperID  string           `json:"paperId"`
	Messages []models.Message `json:"messages"`
	Loading  bool             `json:"loading"`
	Error    string           `json:"error,omitempty"`
}

// bind decodes a bounded JSON body into req, writing the error response on
// failure.
func (h *Handler) bind(c *gin.Context, req any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	if err := c.ShouldBindJSON(req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			abortWithError(c, err)
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// AnalyzePaper analyzes a PDF synchronously and returns the result
func (h *Handler) AnalyzePaper(c *gin.Context) {
	var req analyzeRequest
	if !h.bind(c, &req) {
		return
	}

	data, err := documents.DecodeBase64(req.PDFBase64, h.app.Fetcher.MaxBytes())
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.app.Orchestrator.Process(c.Request.Context(), "", data, nil)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UploadPaper starts background processing and returns the new paper
func (h *Handler) UploadPaper(c *gin.Context) {
	var req uploadRequest
	if !h.bind(c, &req) {
		return
	}

	doc, err := h.app.Fetcher.Fetch(c.Request.Context(), documents.Source{
		Base64:   req.PDFBase64,
		URL:      req.URL,
		ZoteroID: req.ZoteroID,
		Title:    req.Title,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	paper := h.app.Runner.Submit(doc)
	c.JSON(http.StatusAccepted, paper)
}

// ListPapers returns all papers, newest first
func (h *Handler) ListPapers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"papers": h.app.Machine.Papers().List()})
}

// GetPaper returns one paper
func (h *Handler) GetPaper(c *gin.Context) {
	paper, ok := h.app.Machine.Papers().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paper not found"})
		return
	}
	c.JSON(http.StatusOK, paper)
}

// DeletePaper removes a paper and its chat session
func (h *Handler) DeletePaper(c *gin.Context) {
	if err := h.app.Runner.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Chat sends a question about a paper and returns the assistant's reply.
// When the model call fails the fallback reply is returned with a 502.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if !h.bind(c, &req) {
		return
	}

	reply, err := h.app.Chat.Send(c.Request.Context(), req.PaperID, req.Message)
	var modelErr *models.ModelCallError
	if errors.As(err, &modelErr) {
		c.JSON(http.StatusBadGateway, chatResponse{Message: reply, Error: messageFor(err)})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{Message: reply})
}

// GetChat returns the paper's messages with the store's loading and error flags
func (h *Handler) GetChat(c *gin.Context) {
	paperID := c.Param("paperId")
	store := h.app.Chat.Store()

	messages := store.Messages(paperID)
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, chatState{
		PaperID:  paperID,
		Messages: messages,
		Loading:  store.Loading(),
		Error:    store.Err(),
	})
}

// ClearChat removes the paper's chat session
func (h *Handler) ClearChat(c *gin.Context) {
	h.app.Chat.Clear(c.Request.Context(), c.Param("paperId"))
	c.Status(http.StatusNoContent)
}
