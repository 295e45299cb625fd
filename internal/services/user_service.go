package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/justsurfingit/jobboard-gateway/internal/auth"
	"github.com/justsurfingit/jobboard-gateway/internal/models"
	"github.com/justsurfingit/jobboard-gateway/internal/proxy"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
)

// UserService backs the user store: it refreshes the logged-in profile.
type UserService struct {
	Proxy *proxy.Proxy
}

func NewUserService(p *proxy.Proxy) *UserService {
	return &UserService{Proxy: p}
}

func (s *UserService) RefreshAuthUserProfile(ctx context.Context, authorization string) (json.RawMessage, error) {
	return s.Proxy.Call(ctx, proxy.JobseekerProfile, proxy.Input{Authorization: authorization})
}

func (s *UserService) RefreshAuthRecruiterProfile(ctx context.Context, authorization string) (json.RawMessage, error) {
	return s.Proxy.Call(ctx, proxy.RecruiterProfile, proxy.Input{Authorization: authorization})
}

// Refresh loads the profile matching the session's role into the user
// store. Recruiters get the recruiter profile, everybody else the user one.
func (s *UserService) Refresh(ctx context.Context, st *session.State, authorization string) (json.RawMessage, error) {
	fetch := s.RefreshAuthUserProfile
	if st.CurrentUserType == models.AccountRecruiter {
		fetch = s.RefreshAuthRecruiterProfile
	}
	details, err := fetch(ctx, authorization)
	if err != nil {
		return nil, err
	}
	st.SetUserDetails(details)
	return details, nil
}

// CacheKey identifies a session's job cache entry: a digest of the access
// token held by the session or, failing that, sent in authorization. A new
// login gets a new key, and a session without a token gets none.
func CacheKey(st *session.State, authorization string) string {
	token := st.UserToken
	if token == "" || token == auth.NoAuthToken {
		token = auth.TokenFromHeader(authorization)
	}
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return "tok:" + hex.EncodeToString(sum[:])
}
