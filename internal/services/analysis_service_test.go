package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/isdelr/resumai-be/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	mu      sync.Mutex
	files   map[string]string
	failFor string // fail uploads whose key ends with this suffix
}

func (m *memUploader) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if m.failFor != "" && strings.HasSuffix(key, m.failFor) {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = string(data)
	return key, nil
}

func (m *memUploader) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(strings.NewReader(m.files[key])), nil
}

type stubAnalyzer struct {
	out          json.RawMessage
	err          error
	gotPath      string
	instructions string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, path, instructions string) (json.RawMessage, error) {
	s.gotPath, s.instructions = path, instructions
	return s.out, s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
}

func (r *recordingNotifier) NotifyUser(userID, msgType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := payload.(map[string]string); ok {
		r.statuses = append(r.statuses, p["status"])
	}
}

func newAnalysisFixture(t *testing.T) (*AnalysisService, *memUploader, *stubAnalyzer, *recordingNotifier, *ResumeService, string) {
	t.Helper()
	db := dbtest.NewSQLite(t)
	user := createTestUser(t, db, "alice@example.com")
	up := &memUploader{files: map[string]string{}}
	an := &stubAnalyzer{out: json.RawMessage(`{"overallScore":64}`)}
	notifier := &recordingNotifier{}
	resumes := NewResumeService(db)
	svc := NewAnalysisService(up, an, resumes, NewEventService(db), notifier)
	return svc, up, an, notifier, resumes, user.ID
}

func submission() SubmitInput {
	return SubmitInput{
		Resume:         Upload{Filename: "cv.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")},
		Image:          &Upload{Filename: "cv.png", ContentType: "image/png", Body: strings.NewReader("PNG")},
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
		JobDescription: "Go and SQL",
	}
}

func TestAnalysisService_Submit(t *testing.T) {
	svc, up, an, notifier, resumes, userID := newAnalysisFixture(t)
	ctx := context.Background()

	resume, err := svc.Submit(ctx, userID, submission())
	require.NoError(t, err)
	assert.JSONEq(t, `{"overallScore":64}`, string(resume.Feedback))
	assert.Equal(t, "%PDF", up.files[resume.ResumePath])
	assert.Equal(t, "PNG", up.files[resume.ImagePath])
	assert.Equal(t, resume.ResumePath, an.gotPath)
	assert.Contains(t, an.instructions, "Backend Engineer")

	stored, err := resumes.GetByID(ctx, userID, resume.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"overallScore":64}`, string(stored.Feedback))

	assert.Equal(t, []string{StatusUploading, StatusUploadingImage, StatusPreparing, StatusAnalyzing, StatusComplete}, notifier.statuses)
}

func TestAnalysisService_Failures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(up *memUploader, an *stubAnalyzer)
		wantStatus string
		wantStored int
	}{
		{
			name:       "resume upload",
			setup:      func(up *memUploader, an *stubAnalyzer) { up.failFor = ".pdf" },
			wantStatus: StatusUploadFailed,
		},
		{
			name:       "image upload",
			setup:      func(up *memUploader, an *stubAnalyzer) { up.failFor = ".png" },
			wantStatus: StatusImageFailed,
		},
		{
			name:       "analysis",
			setup:      func(up *memUploader, an *stubAnalyzer) { an.err = errors.New("model overloaded") },
			wantStatus: StatusAnalyzeFailed,
			wantStored: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, up, an, notifier, resumes, userID := newAnalysisFixture(t)
			tt.setup(up, an)

			_, err := svc.Submit(context.Background(), userID, submission())
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.wantStatus, statusErr.Status)
			assert.Equal(t, tt.wantStatus, notifier.statuses[len(notifier.statuses)-1])

			list, err := resumes.ListByUser(context.Background(), userID)
			require.NoError(t, err)
			assert.Len(t, list, tt.wantStored)
			for _, r := range list {
				assert.Nil(t, r.Feedback)
			}
		})
	}
}

func TestAnalysisService_NoImage(t *testing.T) {
	svc, _, _, notifier, _, userID := newAnalysisFixture(t)
	in := submission()
	in.Image = nil

	resume, err := svc.Submit(context.Background(), userID, in)
	require.NoError(t, err)
	assert.Empty(t, resume.ImagePath)
	assert.NotContains(t, notifier.statuses, StatusUploadingImage)
}
