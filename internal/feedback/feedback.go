// Package feedback asks an external model to review a resume against a job.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when the analyzer reply is not usable feedback.
var ErrMalformed = errors.New("malformed feedback")

// Analyzer reviews the file stored at path following instructions.
type Analyzer interface {
	Analyze(ctx context.Context, path, instructions string) (json.RawMessage, error)
}

// Tip is one remark within a feedback category.
type Tip struct {
	Type        string `json:"type"` // "good" or "improve"
	Tip         string `json:"tip"`
	Explanation string `json:"explanation,omitempty"`
}

// Category is a scored section of the feedback.
type Category struct {
	Score int   `json:"score"`
	Tips  []Tip `json:"tips"`
}

// Feedback is the structured review returned by the model.
type Feedback struct {
	OverallScore int      `json:"overallScore"`
	ATS          Category `json:"ATS"`
	ToneAndStyle Category `json:"toneAndStyle"`
	Content      Category `json:"content"`
	Structure    Category `json:"structure"`
	Skills       Category `json:"skills"`
}

const responseFormat = `{
  "overallScore": number (0-100),
  "ATS": {"score": number, "tips": [{"type": "good" | "improve", "tip": string}]},
  "toneAndStyle": {"score": number, "tips": [{"type": "good" | "improve", "tip": string, "explanation": string}]},
  "content": {"score": number, "tips": [{"type": "good" | "improve", "tip": string, "explanation": string}]},
  "structure": {"score": number, "tips": [{"type": "good" | "improve", "tip": string, "explanation": string}]},
  "skills": {"score": number, "tips": [{"type": "good" | "improve", "tip": string, "explanation": string}]}
}`

// PrepareInstructions builds the review prompt for a job.
func PrepareInstructions(jobTitle, jobDescription string) string {
	var b strings.Builder
	b.WriteString("You are an expert in ATS (Applicant Tracking System) and resume analysis.\n")
	b.WriteString("Analyze and rate this resume and suggest how to improve it.\n")
	b.WriteString("Be thorough and honest; low scores are fine when deserved.\n")
	if jobTitle != "" {
		fmt.Fprintf(&b, "The job title is: %s\n", jobTitle)
	}
	if jobDescription != "" {
		fmt.Fprintf(&b, "The job description is: %s\n", jobDescription)
	}
	b.WriteString("Provide the feedback using the following format:\n")
	b.WriteString(responseFormat)
	b.WriteString("\nReturn the analysis as a JSON object, without any other text and without backticks.")
	return b.String()
}

// Parse validates raw model output and returns it as compact JSON along
// with its decoded form. Markdown code fences around the JSON are tolerated.
func Parse(text string) (json.RawMessage, Feedback, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(text), &fb); err != nil {
		return nil, Feedback{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fb.OverallScore < 0 || fb.OverallScore > 100 {
		return nil, Feedback{}, fmt.Errorf("%w: overallScore %d out of range", ErrMalformed, fb.OverallScore)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(text)); err != nil {
		return nil, Feedback{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return json.RawMessage(compact.Bytes()), fb, nil
}
