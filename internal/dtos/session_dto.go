package dtos

import (
	"encoding/json"

	"github.com/justsurfingit/jobboard-gateway/internal/models"
)

type UserTypeRequest struct {
	UserType models.AccountType `json:"userType" binding:"required,oneof=guest jobseeker recruiter admin"`
}

type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type AuthDataRequest struct {
	AccountType string `json:"accountType" binding:"required"`
	UserID      string `json:"userId"`
	AdminID     string `json:"adminId"`
	RecruiterID string `json:"recruiterId"`
}

func (r AuthDataRequest) Model() models.UserAuthData {
	return models.UserAuthData{
		AccountType: r.AccountType,
		UserID:      r.UserID,
		AdminID:     r.AdminID,
		RecruiterID: r.RecruiterID,
	}
}

// RawPayloadRequest carries an opaque JSON document, e.g. error data or
// profile details.
type RawPayloadRequest struct {
	Data json.RawMessage `json:"data" binding:"required"`
}
