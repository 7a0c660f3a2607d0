package models

import (
	"encoding/json"
	"time"
)

// Resume is an uploaded resume together with its AI feedback.
type Resume struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	ResumePath     string          `json:"resumePath"`
	ImagePath      string          `json:"imagePath,omitempty"`
	CompanyName    string          `json:"companyName"`
	JobTitle       string          `json:"jobTitle"`
	JobDescription string          `json:"jobDescription"`
	Feedback       json.RawMessage `json:"feedback,omitempty"` // Empty until analysis completes
	CreatedAt      time.Time       `json:"createdAt"`
}
