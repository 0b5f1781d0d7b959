package handler

import (
	"github.com/gin-gonic/gin"

	fulfillmentapp "github.com/pharmadist/backend/internal/application/fulfillment"
)

// IssueNoteHandler handles issue note API endpoints
type IssueNoteHandler struct {
	BaseHandler
	fulfillmentService *fulfillmentapp.FulfillmentService
}

// NewIssueNoteHandler creates a new IssueNoteHandler
func NewIssueNoteHandler(fulfillmentService *fulfillmentapp.FulfillmentService) *IssueNoteHandler {
	return &IssueNoteHandler{fulfillmentService: fulfillmentService}
}

// Create allocates stock for a confirmed order and raises an issue
// note. Allocation follows earliest expiry first; a shortfall on any
// line fails the whole note.
func (h *IssueNoteHandler) Create(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req fulfillmentapp.CreateIssueNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.fulfillmentService.CreateIssueNote(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Cancel reverses an issued note, restoring the deducted lots
func (h *IssueNoteHandler) Cancel(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	noteID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req fulfillmentapp.CancelIssueNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.fulfillmentService.CancelIssueNote(c.Request.Context(), actorID, noteID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Get retrieves an issue note with its lines
func (h *IssueNoteHandler) Get(c *gin.Context) {
	noteID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.fulfillmentService.GetIssueNote(c.Request.Context(), noteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List retrieves a paginated list of issue notes
func (h *IssueNoteHandler) List(c *gin.Context) {
	filter := fulfillmentapp.ListFilter{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	notes, total, err := h.fulfillmentService.ListIssueNotes(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, notes, total, filter.Page, filter.PageSize)
}

// RegisterRoutes registers all issue note routes
func (h *IssueNoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	notes := rg.Group("/issue-notes")
	{
		notes.POST("", h.Create)
		notes.GET("", h.List)
		notes.GET("/:id", h.Get)
		notes.POST("/:id/cancel", h.Cancel)
	}
}
