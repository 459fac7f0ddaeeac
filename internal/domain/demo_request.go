package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DemoRequestDraft is the visitor-editable form data. It is also the request
// body of POST /api/demo-request.
type DemoRequestDraft struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	LookingFor string `json:"lookingFor"`
}

// Normalized returns a copy with surrounding whitespace removed and the
// e-mail address lowercased.
func (d DemoRequestDraft) Normalized() DemoRequestDraft {
	return DemoRequestDraft{
		Name:       strings.TrimSpace(d.Name),
		Email:      strings.ToLower(strings.TrimSpace(d.Email)),
		LookingFor: strings.TrimSpace(d.LookingFor),
	}
}

// DemoRequest is a persisted demo request. Its JSON form is the "data"
// member of a successful endpoint response.
type DemoRequest struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      string    `gorm:"size:254;not null;index" json:"email"`
	LookingFor string    `gorm:"type:text;not null" json:"lookingFor"`
	CreatedAt  time.Time `gorm:"index" json:"timestamp"`
}

// TableName specifies the table name for DemoRequest
func (DemoRequest) TableName() string {
	return "demo_requests"
}

// BeforeCreate assigns the identifier and creation time
func (d *DemoRequest) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return nil
}

// DemoRequestResponse is the acknowledgement envelope returned by the endpoint
type DemoRequestResponse struct {
	Success bool         `json:"success"`
	Data    *DemoRequest `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// DemoRequestListResponse is returned by the staff listing endpoint
type DemoRequestListResponse struct {
	Success bool          `json:"success"`
	Data    []DemoRequest `json:"data"`
	Count   int           `json:"count"`
}
