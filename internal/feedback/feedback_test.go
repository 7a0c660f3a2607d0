package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeedback = `{"overallScore": 72, "ATS": {"score": 80, "tips": [{"type": "good", "tip": "Clear headings"}]}}`

func TestPrepareInstructions(t *testing.T) {
	got := PrepareInstructions("Backend Engineer", "Go, PostgreSQL")
	assert.Contains(t, got, "The job title is: Backend Engineer")
	assert.Contains(t, got, "The job description is: Go, PostgreSQL")
	assert.Contains(t, got, `"overallScore"`)

	bare := PrepareInstructions("", "")
	assert.NotContains(t, bare, "job title")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		score   int
		wantErr bool
	}{
		{name: "plain", in: sampleFeedback, score: 72},
		{name: "fenced", in: "```json\n" + sampleFeedback + "\n```", score: 72},
		{name: "not json", in: "Great resume!", wantErr: true},
		{name: "score out of range", in: `{"overallScore": 140}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, fb, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, fb.OverallScore)
			assert.True(t, json.Valid(raw))
			assert.NotContains(t, string(raw), "\n")
		})
	}
}

func TestHTTPAnalyzer(t *testing.T) {
	stringContent, _ := json.Marshal(map[string]any{"message": map[string]any{"content": sampleFeedback}})
	partsContent, _ := json.Marshal(map[string]any{"message": map[string]any{"content": []map[string]string{{"text": sampleFeedback}}}})

	tests := []struct {
		name    string
		status  int
		body    []byte
		wantErr bool
	}{
		{name: "string content", status: http.StatusOK, body: stringContent},
		{name: "parts content", status: http.StatusOK, body: partsContent},
		{name: "empty parts", status: http.StatusOK, body: []byte(`{"message":{"content":[]}}`), wantErr: true},
		{name: "missing content", status: http.StatusOK, body: []byte(`{"message":{}}`), wantErr: true},
		{name: "upstream error", status: http.StatusBadGateway, body: []byte(`busy`), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
				var req analyzeRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "users/u1/a.pdf", req.Path)
				assert.Equal(t, "review", req.Instructions)
				w.WriteHeader(tt.status)
				w.Write(tt.body)
			}))
			defer srv.Close()

			a := NewHTTPAnalyzer(srv.URL, "k", 5*time.Second)
			raw, err := a.Analyze(context.Background(), "users/u1/a.pdf", "review")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, sampleFeedback, string(raw))
		})
	}
}
