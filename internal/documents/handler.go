package documents

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
)

// Upload bodies are capped; metadata fields ride in the same multipart form.
const maxUploadBytes = 32 << 20

// Handler manages document endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.ActionRead, shared.ResourceDocuments))
		r.Get("/", h.listDocuments)
		r.Get("/{documentID}", h.getDocument)
		r.Get("/{documentID}/download", h.downloadDocument)
	})
	r.With(h.mw.Require(shared.ActionCreate, shared.ResourceDocuments)).Post("/", h.uploadDocument)
	r.With(h.mw.Require(shared.ActionDelete, shared.ResourceDocuments)).Delete("/{documentID}", h.deleteDocument)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	docs, pagination, err := h.service.ListDocuments(r.Context(), page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs, "pagination": pagination})
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetDocument(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "file field required")
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(
		r.Context(),
		actorID(r),
		r.FormValue("title"),
		r.FormValue("description"),
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) downloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, contents, err := h.service.OpenDocument(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer contents.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	if _, err := io.Copy(w, contents); err != nil && h.logger != nil {
		h.logger.Warn("stream document", slog.String("document_id", doc.ID), slog.Any("error", err))
	}
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDocument(r.Context(), actorID(r), chi.URLParam(r, "documentID")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func actorID(r *http.Request) int64 {
	if identity := shared.IdentityFromContext(r.Context()); identity != nil {
		return identity.UserID
	}
	return 0
}
