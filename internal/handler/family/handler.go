// Package family exposes the caregiver-facing HTTP API: daily reports
// and the shared photo yard.
package family

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	familymodel "github.com/tripot-app/backend/internal/model/family"
	familyservice "github.com/tripot-app/backend/internal/service/family"
	reportservice "github.com/tripot-app/backend/internal/service/report"
	"github.com/tripot-app/backend/pkg/utils"
)

// maxUploadBytes bounds one upload request across all of its files.
const maxUploadBytes = 50 << 20

// UserResolver maps the owner key used by the apps to the internal row id.
type UserResolver interface {
	GetOrCreateUser(ctx context.Context, ownerID string) (int64, error)
}

// Handler serves report and photo yard routes.
type Handler struct {
	photos  *familyservice.Service
	reports *reportservice.Service
	users   UserResolver
}

// New creates the family API handler.
func New(photos *familyservice.Service, reports *reportservice.Service, users UserResolver) *Handler {
	return &Handler{photos: photos, reports: reports, users: users}
}

// RegisterRoutes mounts the family API under the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/{userID}", h.handleReport)

	r.Route("/family-yard", func(r chi.Router) {
		r.Post("/upload", h.handleUpload)
		r.Get("/photos", h.handlePhotos)
		r.Get("/photo/{photoID}", h.handlePhotoFile)
		r.Get("/photo/{photoID}/meta", h.handlePhotoMeta)
		r.Get("/photo/{photoID}/comments", h.handleListComments)
		r.Post("/comments", h.handleCreateComment)
	})

	r.Put("/comments/{commentID}", h.handleUpdateComment)
	r.Delete("/comments/{commentID}", h.handleDeleteComment)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		utils.RespondError(w, http.StatusBadRequest, "userID is required")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.reports.Latest(r.Context(), userID))
}

func (h *Handler) resolveUser(w http.ResponseWriter, r *http.Request, ownerID string) (int64, bool) {
	userID, err := h.users.GetOrCreateUser(r.Context(), ownerID)
	if err != nil {
		log.Printf("[family] user lookup failed owner=%s: %v", ownerID, err)
		utils.RespondError(w, http.StatusInternalServerError, "user lookup failed")
		return 0, false
	}
	return userID, true
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleUpload stores one or more photos plus the shared post metadata.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	ownerID := r.FormValue("user_id_str")
	if ownerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id_str is required")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "at least one file is required")
		return
	}

	userID, ok := h.resolveUser(w, r, ownerID)
	if !ok {
		return
	}

	post := familymodel.Post{
		Description:  r.FormValue("description"),
		Mentions:     r.FormValue("mentions"),
		Location:     r.FormValue("location"),
		AudioMessage: r.FormValue("audio_message"),
	}
	uploadedBy := r.FormValue("uploaded_by")

	photoIDs := make([]int64, 0, len(files))
	for _, file := range files {
		contents, err := readUpload(file)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "failed to read file")
			return
		}

		photo, err := h.photos.SaveUpload(r.Context(), userID, file.Filename, uploadedBy, contents, post)
		if err != nil {
			log.Printf("[family] upload failed owner=%s: %v", ownerID, err)
			utils.RespondError(w, http.StatusInternalServerError, "upload failed")
			return
		}
		photoIDs = append(photoIDs, photo.ID)
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"photo_ids": photoIDs,
		"count":     len(photoIDs),
	})
}

func (h *Handler) handlePhotos(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("user_id_str")
	if ownerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id_str is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	userID, ok := h.resolveUser(w, r, ownerID)
	if !ok {
		return
	}

	grouped, total, err := h.photos.PhotosByUserGroupedByDate(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[family] photo listing failed owner=%s: %v", ownerID, err)
		utils.RespondError(w, http.StatusInternalServerError, "photo listing failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"photos_by_date": grouped,
		"total_count":    total,
	})
}

func (h *Handler) photoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "photoID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid photo id")
		return 0, false
	}
	return id, true
}

func (h *Handler) handlePhotoFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}

	photo, err := h.photos.PhotoByID(r.Context(), id)
	if errors.Is(err, familyservice.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		log.Printf("[family] photo lookup failed id=%d: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "photo lookup failed")
		return
	}

	http.ServeFile(w, r, photo.FilePath)
}

func (h *Handler) handlePhotoMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}

	photo, err := h.photos.PhotoByID(r.Context(), id)
	if errors.Is(err, familyservice.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		log.Printf("[family] photo lookup failed id=%d: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "photo lookup failed")
		return
	}

	post, err := h.photos.PostByPhoto(r.Context(), id)
	if err != nil && !errors.Is(err, familyservice.ErrNotFound) {
		log.Printf("[family] post lookup failed id=%d: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "post lookup failed")
		return
	}

	comments, err := h.photos.CommentsByPhoto(r.Context(), id)
	if err != nil {
		log.Printf("[family] comment listing failed id=%d: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "comment listing failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"photo":    photo,
		"post":     post,
		"comments": comments,
	})
}

type commentCreateRequest struct {
	PhotoID    int64  `json:"photo_id"`
	UserID     string `json:"user_id_str"`
	AuthorName string `json:"author_name"`
	Text       string `json:"comment_text"`
}

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentCreateRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhotoID == 0 || req.AuthorName == "" || req.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "photo_id, author_name, and comment_text are required")
		return
	}

	userID := int64(0)
	if req.UserID != "" {
		resolved, ok := h.resolveUser(w, r, req.UserID)
		if !ok {
			return
		}
		userID = resolved
	}

	comment, err := h.photos.CreateComment(r.Context(), req.PhotoID, userID, req.AuthorName, req.Text)
	if errors.Is(err, familyservice.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		log.Printf("[family] comment creation failed photo=%d: %v", req.PhotoID, err)
		utils.RespondError(w, http.StatusInternalServerError, "comment creation failed")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, comment)
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}

	comments, err := h.photos.CommentsByPhoto(r.Context(), id)
	if err != nil {
		log.Printf("[family] comment listing failed photo=%d: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "comment listing failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (h *Handler) commentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "commentID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid comment id")
		return 0, false
	}
	return id, true
}

type commentUpdateRequest struct {
	UserID string `json:"user_id_str"`
	Text   string `json:"comment_text"`
}

func (h *Handler) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.commentID(w, r)
	if !ok {
		return
	}

	var req commentUpdateRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "comment_text is required")
		return
	}

	err := h.photos.UpdateComment(r.Context(), id, req.Text)
	if errors.Is(err, familyservice.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "comment not found")
		return
	}
	if err != nil {
		log.Printf("[family] comment update failed id=%d: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "comment update failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.commentID(w, r)
	if !ok {
		return
	}

	err := h.photos.DeleteComment(r.Context(), id)
	if errors.Is(err, familyservice.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "comment not found")
		return
	}
	if err != nil {
		log.Printf("[family] comment deletion failed id=%d: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "comment deletion failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}
