package services

import (
	"context"
	"fmt"
	"io"

	"github.com/isdelr/resumai-be/internal/feedback"
	"github.com/isdelr/resumai-be/internal/models"
	"github.com/isdelr/resumai-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// User-visible progress and failure texts of the analysis pipeline.
const (
	StatusUploading      = "Uploading the file..."
	StatusUploadingImage = "Uploading the image..."
	StatusPreparing      = "Preparing data..."
	StatusAnalyzing      = "Analyzing..."
	StatusComplete       = "Analysis complete!"

	StatusUploadFailed  = "Failed to upload file."
	StatusImageFailed   = "Failed to upload image."
	StatusSaveFailed    = "Failed to save resume."
	StatusAnalyzeFailed = "Failed to analyze resume."
)

// NotifyResumeStatus is the push message type for pipeline progress.
const NotifyResumeStatus = "resume.status"

// StatusError is a pipeline failure with a message safe to show the user.
type StatusError struct {
	Status string
	Err    error
}

func (e *StatusError) Error() string { return e.Status + " " + e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// Notifier pushes messages to a user's live connections.
type Notifier interface {
	NotifyUser(userID, msgType string, payload any)
}

// Upload is one file from a submission.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// SubmitInput is a resume submission.
type SubmitInput struct {
	Resume         Upload
	Image          *Upload
	CompanyName    string
	JobTitle       string
	JobDescription string
}

// AnalysisServiceProvider defines the interface for the analysis pipeline.
type AnalysisServiceProvider interface {
	Submit(ctx context.Context, userID string, in SubmitInput) (models.Resume, error)
}

// AnalysisService stores a resume and asks the analyzer for feedback.
// Failures are not retried.
type AnalysisService struct {
	uploader storage.Uploader
	analyzer feedback.Analyzer
	resumes  ResumeServiceProvider
	events   EventServiceProvider
	notifier Notifier
}

// NewAnalysisService creates a new AnalysisService. notifier may be nil.
func NewAnalysisService(uploader storage.Uploader, analyzer feedback.Analyzer, resumes ResumeServiceProvider, events EventServiceProvider, notifier Notifier) *AnalysisService {
	return &AnalysisService{
		uploader: uploader,
		analyzer: analyzer,
		resumes:  resumes,
		events:   events,
		notifier: notifier,
	}
}

// Submit runs the pipeline: upload the resume, upload the preview image,
// save the record, analyze, then save the feedback. If analysis fails the
// record is kept without feedback.
func (s *AnalysisService) Submit(ctx context.Context, userID string, in SubmitInput) (models.Resume, error) {
	s.status(userID, "", StatusUploading)
	resumePath, err := s.uploader.Upload(ctx, storage.NewKey(userID, in.Resume.Filename), in.Resume.ContentType, in.Resume.Body)
	if err != nil {
		return models.Resume{}, s.fail(ctx, userID, "", StatusUploadFailed, err)
	}

	var imagePath string
	if in.Image != nil {
		s.status(userID, "", StatusUploadingImage)
		imagePath, err = s.uploader.Upload(ctx, storage.NewKey(userID, in.Image.Filename), in.Image.ContentType, in.Image.Body)
		if err != nil {
			return models.Resume{}, s.fail(ctx, userID, "", StatusImageFailed, err)
		}
	}

	s.status(userID, "", StatusPreparing)
	resume, err := s.resumes.Create(ctx, models.Resume{
		UserID:         userID,
		ResumePath:     resumePath,
		ImagePath:      imagePath,
		CompanyName:    in.CompanyName,
		JobTitle:       in.JobTitle,
		JobDescription: in.JobDescription,
	})
	if err != nil {
		return models.Resume{}, s.fail(ctx, userID, "", StatusSaveFailed, err)
	}

	s.status(userID, resume.ID, StatusAnalyzing)
	fb, err := s.analyzer.Analyze(ctx, resumePath, feedback.PrepareInstructions(in.JobTitle, in.JobDescription))
	if err != nil {
		return resume, s.fail(ctx, userID, resume.ID, StatusAnalyzeFailed, err)
	}

	if err := s.resumes.UpdateFeedback(ctx, resume.ID, fb); err != nil {
		return resume, s.fail(ctx, userID, resume.ID, StatusSaveFailed, err)
	}
	resume.Feedback = fb

	s.status(userID, resume.ID, StatusComplete)
	s.record(ctx, "resume.analyze.success", "info", fmt.Sprintf("Resume for %q analyzed", in.JobTitle), userID)
	return resume, nil
}

func (s *AnalysisService) fail(ctx context.Context, userID, resumeID, status string, err error) error {
	log.Error().Err(err).Str("user_id", userID).Str("resume_id", resumeID).Msg(status)
	s.status(userID, resumeID, status)
	s.record(ctx, "resume.analyze.fail", "error", status, userID)
	return &StatusError{Status: status, Err: err}
}

func (s *AnalysisService) status(userID, resumeID, status string) {
	log.Debug().Str("user_id", userID).Str("resume_id", resumeID).Msg(status)
	if s.notifier == nil {
		return
	}
	payload := map[string]string{"status": status}
	if resumeID != "" {
		payload["resumeId"] = resumeID
	}
	s.notifier.NotifyUser(userID, NotifyResumeStatus, payload)
}

func (s *AnalysisService) record(ctx context.Context, eventType, level, message, userID string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(context.WithoutCancel(ctx), eventType, level, message, &userID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
