package dtos

import (
	"encoding/json"

	"github.com/justsurfingit/jobboard-gateway/internal/models"
)

// GetCodeRequest starts the phone login/sign-up flow.
type GetCodeRequest struct {
	PhoneNumber models.PhoneNumberField `json:"phoneNumber" binding:"required"`
	Username    *string                 `json:"username"`
}

// VerifyCodeRequest completes a phone code challenge. Code is sent either as
// a number or a string.
type VerifyCodeRequest struct {
	PhoneNumber json.RawMessage `json:"phoneNumber" binding:"required"`
	Code        json.RawMessage `json:"code" binding:"required"`
}
