package handler

import (
	"errors"
	"net/http"
	"strings"

	"lumina/internal/httputil"
	"lumina/internal/logger"
	"lumina/internal/model"
	"lumina/internal/service"
	"lumina/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService
	log          *logger.Logger
}

func NewMediaHandler(mediaService *service.MediaService, log *logger.Logger) *MediaHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MediaHandler{mediaService: mediaService, log: log}
}

// UploadAvatar handles POST /profile/avatar
// Expects multipart/form-data with an "avatar" file part.
func (h *MediaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Session required")
		return
	}
	if !h.mediaService.Enabled() {
		httputil.WriteServiceUnavailable(w, model.CodeMediaNotConfigured, "Avatar uploads are not configured")
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "avatar file is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadAvatar(r.Context(), session.DeviceID(), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			h.log.Error("[Media] UploadAvatar FAILED", "session_id", session.ID(), "error", err)
			httputil.WriteInternalError(w, "Failed to upload avatar")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session.SetAvatar(upload.URL))
}
