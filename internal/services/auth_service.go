package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/justsurfingit/jobboard-gateway/internal/dtos"
	"github.com/justsurfingit/jobboard-gateway/internal/proxy"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
)

// AuthService drives the phone code login of the auth store.
type AuthService struct {
	Proxy *proxy.Proxy
}

func NewAuthService(p *proxy.Proxy) *AuthService {
	return &AuthService{Proxy: p}
}

// LoginOrSignupUser asks the backend to text a code to the phone number and
// remembers the number for the verification step.
func (s *AuthService) LoginOrSignupUser(ctx context.Context, st *session.State, req dtos.GetCodeRequest) (json.RawMessage, error) {
	return s.run(ctx, st, proxy.GetCode, req)
}

// VerifyAuthCode checks the code and, when the backend hands out a token,
// logs the session in.
func (s *AuthService) VerifyAuthCode(ctx context.Context, st *session.State, req dtos.VerifyCodeRequest) (json.RawMessage, error) {
	return s.run(ctx, st, proxy.VerifyCode, req)
}

func (s *AuthService) run(ctx context.Context, st *session.State, rt proxy.Route, req any) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", rt.Name, err)
	}
	data, err := s.Proxy.Call(ctx, rt, proxy.Input{Body: body})
	if err != nil {
		return nil, err
	}
	if rt.OnSuccess != nil {
		rt.OnSuccess(st, body, gjson.ParseBytes(data))
	}
	return data, nil
}
