package models

import (
	"encoding/json"
	"time"
)

// AccountType is the role a session is acting as.
type AccountType string

const (
	AccountGuest     AccountType = "guest"
	AccountJobseeker AccountType = "jobseeker"
	AccountRecruiter AccountType = "recruiter"
	AccountAdmin     AccountType = "admin"
)

// Valid reports whether t is one of the known roles.
func (t AccountType) Valid() bool {
	switch t {
	case AccountGuest, AccountJobseeker, AccountRecruiter, AccountAdmin:
		return true
	}
	return false
}

// UserAuthData is what the backend hands out after a successful login.
type UserAuthData struct {
	AccountType string `json:"accountType"`
	UserID      string `json:"userId,omitempty"`
	AdminID     string `json:"adminId,omitempty"`
	RecruiterID string `json:"recruiterId,omitempty"`
}

type CountryData struct {
	Name      string `json:"name"`
	ShortCode string `json:"shortCode"`
}

type PhoneNumberField struct {
	Code    string      `json:"code" binding:"required"`
	Number  string      `json:"number" binding:"required"`
	Country CountryData `json:"country"`
}

// JobData is the per-session job cache. Each list holds the backend's answer
// as received, pagination fields included. None of it is persisted.
type JobData struct {
	JobList            json.RawMessage `json:"jobList"`
	JobStats           json.RawMessage `json:"jobStats"`
	JobApplicationList json.RawMessage `json:"jobApplicationList"`
}

// SessionRecord is a server-side persisted session. Payload holds the
// encrypted session state.
type SessionRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Payload string `gorm:"type:text;not null" json:"-"`
}

func (SessionRecord) TableName() string { return "sessions" }
