// internal/handlers/note/note_handler.go
package note

import (
	"net/http"

	notedom "notesaas-service/internal/domain/note"
	"notesaas-service/internal/middleware"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/response"
	noteUsecase "notesaas-service/internal/service/note"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NoteHandler struct {
	notes  *noteUsecase.NotesService
	logger *zap.Logger
}

func NewNoteHandler(notes *noteUsecase.NotesService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// ListNotes returns the caller's tenant collection, filtered and sorted.
// Query params: q, category, sort (title|created|updated).
func (h *NoteHandler) ListNotes(c *gin.Context) {
	var q notedom.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, "invalid query", err)
		return
	}

	notes, err := h.notes.List(c.Request.Context(), middleware.MustGetSubject(c), &q)
	if err != nil {
		h.writeError(c, "failed to list notes", err)
		return
	}
	response.Success(c, http.StatusOK, "notes", notes)
}

// GetNote returns a single note by id.
func (h *NoteHandler) GetNote(c *gin.Context) {
	n, err := h.notes.Get(c.Request.Context(), middleware.MustGetSubject(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to get note", err)
		return
	}
	response.Success(c, http.StatusOK, "note", n)
}

// CreateNote adds a note, subject to the plan's maxNotes quota.
func (h *NoteHandler) CreateNote(c *gin.Context) {
	var draft notedom.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	n, err := h.notes.Create(c.Request.Context(), middleware.MustGetSubject(c), &draft)
	if err != nil {
		h.writeError(c, "failed to create note", err)
		return
	}
	response.Success(c, http.StatusCreated, "note created", n)
}

// UpdateNote merges a patch into an existing note.
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	var patch notedom.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	n, err := h.notes.Update(c.Request.Context(), middleware.MustGetSubject(c), c.Param("id"), &patch)
	if err != nil {
		h.writeError(c, "failed to update note", err)
		return
	}
	response.Success(c, http.StatusOK, "note updated", n)
}

// DeleteNote removes a note; deleting an absent id succeeds.
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), middleware.MustGetSubject(c), c.Param("id")); err != nil {
		h.writeError(c, "failed to delete note", err)
		return
	}
	response.Success(c, http.StatusOK, "note deleted", nil)
}

// TogglePin flips a note's pinned flag; absent ids are a no-op.
func (h *NoteHandler) TogglePin(c *gin.Context) {
	n, err := h.notes.TogglePin(c.Request.Context(), middleware.MustGetSubject(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to toggle pin", err)
		return
	}
	response.Success(c, http.StatusOK, "pin toggled", n)
}

func (h *NoteHandler) writeError(c *gin.Context, message string, err error) {
	switch {
	case xerrors.Is(err, xerrors.ErrQuotaExceeded):
		response.Error(c, http.StatusForbidden, "plan quota exceeded", err)
	case xerrors.Is(err, xerrors.ErrPermissionDenied):
		response.Error(c, http.StatusForbidden, message, err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		response.Error(c, http.StatusNotFound, message, err)
	case xerrors.Is(err, xerrors.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}
