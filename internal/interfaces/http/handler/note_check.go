package handler

import (
	"github.com/gin-gonic/gin"

	inventoryapp "github.com/pharmadist/backend/internal/application/inventory"
)

// NoteCheckHandler handles stock reconciliation API endpoints
type NoteCheckHandler struct {
	BaseHandler
	noteCheckService *inventoryapp.NoteCheckService
}

// NewNoteCheckHandler creates a new NoteCheckHandler
func NewNoteCheckHandler(noteCheckService *inventoryapp.NoteCheckService) *NoteCheckHandler {
	return &NoteCheckHandler{noteCheckService: noteCheckService}
}

// Create opens a reconciliation session against the current ledger
func (h *NoteCheckHandler) Create(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req inventoryapp.CreateNoteCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.noteCheckService.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Update corrects counted quantities while the check is pending
func (h *NoteCheckHandler) Update(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	checkID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.UpdateNoteCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.noteCheckService.Update(c.Request.Context(), actorID, checkID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Approve finalizes the check and overwrites the ledger with the
// counted quantities
func (h *NoteCheckHandler) Approve(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	checkID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.noteCheckService.Approve(c.Request.Context(), actorID, checkID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// VoidLine dismisses a damaged line from the error product report
func (h *NoteCheckHandler) VoidLine(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	checkID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.parseIDParam(c, "lineId")
	if !ok {
		return
	}

	resp, err := h.noteCheckService.VoidErrorLine(c.Request.Context(), actorID, checkID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Get retrieves a note check with its lines
func (h *NoteCheckHandler) Get(c *gin.Context) {
	checkID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.noteCheckService.GetByID(c.Request.Context(), checkID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List retrieves a paginated list of note checks
func (h *NoteCheckHandler) List(c *gin.Context) {
	filter := inventoryapp.ListFilter{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	checks, total, err := h.noteCheckService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, checks, total, filter.Page, filter.PageSize)
}

// ErrorProducts lists damaged lines recorded by approved checks
func (h *NoteCheckHandler) ErrorProducts(c *gin.Context) {
	filter := inventoryapp.ListFilter{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	lines, err := h.noteCheckService.ErrorProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lines)
}

// RegisterRoutes registers all note check routes
func (h *NoteCheckHandler) RegisterRoutes(rg *gin.RouterGroup) {
	checks := rg.Group("/note-checks")
	{
		checks.POST("", h.Create)
		checks.GET("", h.List)
		checks.GET("/error-products", h.ErrorProducts)
		checks.GET("/:id", h.Get)
		checks.PUT("/:id", h.Update)
		checks.POST("/:id/approve", h.Approve)
		checks.POST("/:id/lines/:lineId/void", h.VoidLine)
	}
}
