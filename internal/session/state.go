package session

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/justsurfingit/jobboard-gateway/internal/auth"
	"github.com/justsurfingit/jobboard-gateway/internal/models"
)

// State is everything the browser used to keep in persisted storage for a
// visitor: the auth, user and local stores. Job data is cached separately.
type State struct {
	// auth store
	CurrentUserType  models.AccountType   `json:"currentUserType"`
	LoggedInUser     *models.UserAuthData `json:"loggedInUser"`
	IsAuthenticated  bool                 `json:"isAuthenticated"`
	CurrentAuthPhone json.RawMessage      `json:"currentAuthPhone,omitempty"`
	UserToken        string               `json:"userToken,omitempty"`
	PublicToken      string               `json:"publicToken,omitempty"`

	// user store
	LoggedInUserDetails json.RawMessage `json:"loggedInUserDetails,omitempty"`

	// local store
	IsExpandedNav      bool            `json:"isExpandedNav"`
	IsMobileMenuOpened bool            `json:"isMobileMenuOpened"`
	ErrorData          json.RawMessage `json:"errorData,omitempty"`

	id    string
	dirty bool
}

// New returns a state holding every default.
func New() *State {
	return &State{CurrentUserType: models.AccountGuest}
}

// ID is the server-side session identifier, empty for cookie sessions and
// for sessions that were never saved.
func (s *State) ID() string { return s.id }

func (s *State) Dirty() bool { return s.dirty }

func (s *State) touch() { s.dirty = true }

func (s *State) ChangeUserType(t models.AccountType) {
	s.CurrentUserType = t
	s.touch()
}

// SetUserToken stores the access token and marks the session authenticated.
func (s *State) SetUserToken(token string) {
	s.UserToken = token
	s.IsAuthenticated = true
	s.touch()
}

func (s *State) SetUserAuthData(d models.UserAuthData) {
	s.LoggedInUser = &d
	s.touch()
}

func (s *State) SetPublicToken(token string) {
	s.PublicToken = token
	s.touch()
}

func (s *State) SetAuthPhone(phone json.RawMessage) {
	s.CurrentAuthPhone = clone(phone)
	s.touch()
}

// LogoutUser resets the auth store. Nav preferences survive a logout.
func (s *State) LogoutUser() {
	s.CurrentUserType = models.AccountGuest
	s.LoggedInUser = nil
	s.IsAuthenticated = false
	s.CurrentAuthPhone = nil
	s.UserToken = ""
	s.PublicToken = ""
	s.touch()
}

func (s *State) SetUserDetails(details json.RawMessage) {
	s.LoggedInUserDetails = clone(details)
	s.touch()
}

func (s *State) ClearUserStore() {
	s.LoggedInUserDetails = nil
	s.touch()
}

func (s *State) ToggleNavState() {
	s.IsExpandedNav = !s.IsExpandedNav
	s.touch()
}

func (s *State) ToggleMobileMenu() {
	s.IsMobileMenuOpened = !s.IsMobileMenuOpened
	s.touch()
}

func (s *State) SetError(data json.RawMessage) {
	s.ErrorData = clone(data)
	s.touch()
}

// HasError reports whether an error payload was recorded.
func (s *State) HasError() bool { return present(s.ErrorData) }

func (s *State) HasPublicToken() bool { return s.PublicToken != "" }

// Authenticated is the login flag, additionally dropped once a JWT access
// token has expired. Opaque tokens are trusted as long as the flag is set.
func (s *State) Authenticated(now time.Time) bool {
	if !s.IsAuthenticated {
		return false
	}
	if info, err := auth.Inspect(s.UserToken); err == nil && info.Expired(now) {
		return false
	}
	return true
}

// AccountType of the logged-in user record, empty when nobody logged in.
func (s *State) AccountType() string {
	if s.LoggedInUser == nil {
		return ""
	}
	return s.LoggedInUser.AccountType
}

// PublicView is the state as handed to the browser; the token is replaced
// by a flag.
type PublicView struct {
	CurrentUserType     models.AccountType   `json:"currentUserType"`
	LoggedInUser        *models.UserAuthData `json:"loggedInUser"`
	IsAuthenticated     bool                 `json:"isAuthenticated"`
	HasUserToken        bool                 `json:"hasUserToken"`
	HasPublicToken      bool                 `json:"hasPublicToken"`
	CurrentAuthPhone    json.RawMessage      `json:"currentAuthPhone"`
	LoggedInUserDetails json.RawMessage      `json:"loggedInUserDetails"`
	IsExpandedNav       bool                 `json:"isExpandedNav"`
	IsMobileMenuOpened  bool                 `json:"isMobileMenuOpened"`
	ErrorData           json.RawMessage      `json:"errorData"`
}

func (s *State) Public(now time.Time) PublicView {
	return PublicView{
		CurrentUserType:     s.CurrentUserType,
		LoggedInUser:        s.LoggedInUser,
		IsAuthenticated:     s.Authenticated(now),
		HasUserToken:        s.UserToken != "",
		HasPublicToken:      s.HasPublicToken(),
		CurrentAuthPhone:    orNull(s.CurrentAuthPhone),
		LoggedInUserDetails: orNull(s.LoggedInUserDetails),
		IsExpandedNav:       s.IsExpandedNav,
		IsMobileMenuOpened:  s.IsMobileMenuOpened,
		ErrorData:           orNull(s.ErrorData),
	}
}

var jsonNull = []byte("null")

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, jsonNull)
}

func clone(raw json.RawMessage) json.RawMessage {
	if !present(raw) {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func orNull(raw json.RawMessage) json.RawMessage {
	if !present(raw) {
		return json.RawMessage(jsonNull)
	}
	return raw
}
