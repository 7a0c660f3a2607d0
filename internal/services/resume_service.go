package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/resumai-be/internal/database"
	"github.com/isdelr/resumai-be/internal/models"
)

// ErrResumeNotFound is returned when a resume does not exist or belongs to
// another user.
var ErrResumeNotFound = errors.New("resume not found")

// ResumeServiceProvider defines the interface for resume services.
type ResumeServiceProvider interface {
	Create(ctx context.Context, resume models.Resume) (models.Resume, error)
	UpdateFeedback(ctx context.Context, id string, feedback json.RawMessage) error
	GetByID(ctx context.Context, userID, id string) (models.Resume, error)
	ListByUser(ctx context.Context, userID string) ([]models.Resume, error)
}

// ResumeService stores resume metadata and feedback.
type ResumeService struct {
	db  database.Querier
	now func() time.Time
}

// NewResumeService creates a new ResumeService.
func NewResumeService(db database.Querier) *ResumeService {
	return &ResumeService{db: db, now: time.Now}
}

const resumeColumns = "id, user_id, resume_path, image_path, company_name, job_title, job_description, feedback, created_at"

// Create stores a new resume record with empty feedback.
func (s *ResumeService) Create(ctx context.Context, resume models.Resume) (models.Resume, error) {
	if resume.ID == "" {
		resume.ID = uuid.New().String()
	}
	resume.CreatedAt = s.now().UTC()
	resume.Feedback = nil

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO resumes ("+resumeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		resume.ID, resume.UserID, resume.ResumePath, resume.ImagePath,
		resume.CompanyName, resume.JobTitle, resume.JobDescription, "", resume.CreatedAt,
	)
	if err != nil {
		return models.Resume{}, fmt.Errorf("insert resume: %w", err)
	}
	return resume, nil
}

// UpdateFeedback stores the analysis result for a resume.
func (s *ResumeService) UpdateFeedback(ctx context.Context, id string, feedback json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE resumes SET feedback = ? WHERE id = ?"), string(feedback), id)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrResumeNotFound
	}
	return nil
}

// GetByID returns a resume owned by userID.
func (s *ResumeService) GetByID(ctx context.Context, userID, id string) (models.Resume, error) {
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind("SELECT "+resumeColumns+" FROM resumes WHERE id = ? AND user_id = ?"),
		id, userID,
	)
	resume, err := scanResume(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Resume{}, ErrResumeNotFound
		}
		return models.Resume{}, err
	}
	return resume, nil
}

// ListByUser returns a user's resumes, newest first.
func (s *ResumeService) ListByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind("SELECT "+resumeColumns+" FROM resumes WHERE user_id = ? ORDER BY created_at DESC"),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := []models.Resume{}
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	return resumes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (models.Resume, error) {
	var (
		r        models.Resume
		feedback string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.ResumePath, &r.ImagePath,
		&r.CompanyName, &r.JobTitle, &r.JobDescription, &feedback, &r.CreatedAt)
	if err != nil {
		return models.Resume{}, err
	}
	if feedback != "" {
		r.Feedback = json.RawMessage(feedback)
	}
	return r, nil
}
