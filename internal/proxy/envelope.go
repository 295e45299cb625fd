package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/upstream"
)

const (
	msgUpstreamNoBody = "An error occurred"
	msgInternal       = "Internal server error"
)

// Envelope wraps every successful proxy answer.
type Envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// ErrorEnvelope is the error shape the browser client already understands.
type ErrorEnvelope struct {
	StatusCode int                 `json:"statusCode"`
	Message    string              `json:"message"`
	Stack      string              `json:"stack"`
	Data       json.RawMessage     `json:"data"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

// MissingParamError reports a query parameter needed to build the upstream
// path.
type MissingParamError struct {
	Param string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("missing query parameter %q", e.Param)
}

// BindError wraps a request body that failed validation.
type BindError struct {
	Err error
}

func (e *BindError) Error() string { return "invalid request body: " + e.Err.Error() }
func (e *BindError) Unwrap() error { return e.Err }

// WriteSuccess answers with the standard success envelope.
func WriteSuccess(c *gin.Context, data json.RawMessage) {
	c.JSON(http.StatusOK, Envelope{Status: http.StatusOK, Data: orNull(data)})
}

// WriteError maps err onto an error envelope. failureMessage is used when the
// backend answered with a body that carries no message of its own.
func WriteError(c *gin.Context, logger *zap.Logger, failureMessage string, err error) {
	env := errorEnvelope(failureMessage, err)
	if env.StatusCode >= http.StatusInternalServerError {
		logger.Warn("proxy call failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", env.StatusCode),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(env.StatusCode, env)
}

func errorEnvelope(failureMessage string, err error) ErrorEnvelope {
	var (
		upErr    *upstream.Error
		paramErr *MissingParamError
		bindErr  *BindError
	)
	switch {
	case errors.As(err, &upErr):
		return upstreamErrorEnvelope(failureMessage, upErr)
	case errors.As(err, &paramErr):
		return ErrorEnvelope{
			StatusCode: http.StatusBadRequest,
			Message:    paramErr.Error(),
			Data:       orNull(nil),
		}
	case errors.As(err, &bindErr):
		return ErrorEnvelope{
			StatusCode: http.StatusBadRequest,
			Message:    "Validation failed",
			Data:       orNull(nil),
			Errors:     fieldErrors(bindErr.Err),
		}
	}
	return ErrorEnvelope{
		StatusCode: http.StatusInternalServerError,
		Message:    msgInternal,
		Data:       orNull(nil),
	}
}

func upstreamErrorEnvelope(failureMessage string, e *upstream.Error) ErrorEnvelope {
	env := ErrorEnvelope{StatusCode: e.Status}
	body := bytes.TrimSpace(e.Body)
	if len(body) == 0 {
		env.Message = msgUpstreamNoBody
		env.Data = orNull(nil)
		return env
	}

	if gjson.ValidBytes(body) {
		env.Data = json.RawMessage(body)
		env.Message = messageOf(gjson.GetBytes(body, "message"))
	} else {
		quoted, _ := json.Marshal(string(body))
		env.Data = quoted
	}
	if env.Message == "" {
		env.Message = failureMessage
	}
	if env.Message == "" {
		env.Message = http.StatusText(e.Status)
	}
	return env
}

// messageOf flattens the backend's message, which is either a string or a
// list of validation messages.
func messageOf(m gjson.Result) string {
	if m.IsArray() {
		var parts []string
		for _, item := range m.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(m.String())
}

func fieldErrors(err error) map[string][]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"body": {err.Error()}}
	}
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], fmt.Sprintf("failed on the '%s' rule", fe.Tag()))
	}
	return out
}

func raw(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return nil
	}
	return json.RawMessage(r.Raw)
}

func orNull(m json.RawMessage) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage("null")
	}
	return m
}
