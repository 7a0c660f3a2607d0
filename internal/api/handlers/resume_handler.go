package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/resumai-be/internal/services"
	"github.com/isdelr/resumai-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// ResumeHandler handles HTTP requests for resume submissions and feedback.
type ResumeHandler struct {
	resumes  services.ResumeServiceProvider
	analysis services.AnalysisServiceProvider
	uploader storage.Uploader
	maxBytes int64
}

// NewResumeHandler creates a new ResumeHandler. maxBytes caps the size of a
// whole multipart submission.
func NewResumeHandler(resumes services.ResumeServiceProvider, analysis services.AnalysisServiceProvider, uploader storage.Uploader, maxBytes int64) *ResumeHandler {
	return &ResumeHandler{resumes: resumes, analysis: analysis, uploader: uploader, maxBytes: maxBytes}
}

// List handles the request to get all of the caller's resumes.
func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	resumes, err := h.resumes.ListByUser(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list resumes")
		http.Error(w, "Failed to retrieve resumes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resumes)
}

// Get handles the request to get a single resume with its feedback.
func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	resume, err := h.resumes.GetByID(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, services.ErrResumeNotFound) {
			http.Error(w, "Resume not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("resume_id", id).Msg("Failed to get resume")
		http.Error(w, "Failed to retrieve resume", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resume)
}

// File streams the stored resume document or its preview image.
func (h *ResumeHandler) File(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	resume, err := h.resumes.GetByID(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, services.ErrResumeNotFound) {
			http.Error(w, "Resume not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("resume_id", id).Msg("Failed to get resume")
		http.Error(w, "Failed to retrieve resume", http.StatusInternalServerError)
		return
	}

	key := resume.ResumePath
	if chi.URLParam(r, "kind") == "image" {
		key = resume.ImagePath
	}
	if key == "" {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	rc, err := h.uploader.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to open stored file")
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to stream stored file")
	}
}

// Create handles a multipart resume submission and runs the analysis.
func (h *ResumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		http.Error(w, "Invalid or oversized upload", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	resumeFile, resumeHeader, err := r.FormFile("resume")
	if err != nil {
		http.Error(w, "A resume file is required", http.StatusBadRequest)
		return
	}
	defer resumeFile.Close()

	if !isPDF(resumeHeader) {
		http.Error(w, "Resume must be a PDF", http.StatusBadRequest)
		return
	}

	jobTitle := strings.TrimSpace(r.FormValue("job-title"))
	if jobTitle == "" {
		http.Error(w, "Job title is required", http.StatusBadRequest)
		return
	}

	in := services.SubmitInput{
		Resume: services.Upload{
			Filename:    resumeHeader.Filename,
			ContentType: "application/pdf",
			Body:        resumeFile,
		},
		CompanyName:    strings.TrimSpace(r.FormValue("company-name")),
		JobTitle:       jobTitle,
		JobDescription: strings.TrimSpace(r.FormValue("job-description")),
	}

	if imageFile, imageHeader, err := r.FormFile("image"); err == nil {
		defer imageFile.Close()
		in.Image = &services.Upload{
			Filename:    imageHeader.Filename,
			ContentType: imageHeader.Header.Get("Content-Type"),
			Body:        imageFile,
		}
	}

	resume, err := h.analysis.Submit(r.Context(), user.ID, in)
	if err != nil {
		var statusErr *services.StatusError
		msg := "Failed to process resume"
		if errors.As(err, &statusErr) {
			msg = statusErr.Status
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"status": msg, "resume": nullableResume(resume.ID, resume)})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resume)
}

func isPDF(h *multipart.FileHeader) bool {
	if strings.EqualFold(path.Ext(h.Filename), ".pdf") {
		return true
	}
	mt, _, _ := mime.ParseMediaType(h.Header.Get("Content-Type"))
	return mt == "application/pdf"
}

// nullableResume returns nil when the pipeline failed before a record was
// saved.
func nullableResume(id string, resume any) any {
	if id == "" {
		return nil
	}
	return resume
}
