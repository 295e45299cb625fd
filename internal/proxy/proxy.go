package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/auth"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
	"github.com/justsurfingit/jobboard-gateway/internal/upstream"
)

// BodyMode says what is sent upstream as the request body.
type BodyMode int

const (
	NoBody BodyMode = iota
	ForwardBody
	EmptyObject
)

// Shape says how a successful upstream body becomes the envelope's data.
type Shape int

const (
	// ShapeData lifts the backend's own "data" field.
	ShapeData Shape = iota
	// ShapeTokenUser lifts top level "accessToken" and "user".
	ShapeTokenUser
)

// Route is one proxied endpoint: a local path answered by calling a single
// upstream path.
type Route struct {
	Name     string
	Method   string
	Path     string
	Upstream string // {param} placeholders are filled from the query string

	Auth         bool
	Body         BodyMode
	ForwardQuery bool
	Shape        Shape

	// FailureMessage replaces a missing backend error message.
	FailureMessage string
	// OnSuccess updates the visitor's session from the request body and the
	// reshaped data.
	OnSuccess func(st *session.State, body []byte, data gjson.Result)
}

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// UpstreamPath fills the route's placeholders from query.
func (rt Route) UpstreamPath(query url.Values) (string, error) {
	var missing string
	path := placeholder.ReplaceAllStringFunc(rt.Upstream, func(m string) string {
		name := m[1 : len(m)-1]
		v := strings.TrimSpace(query.Get(name))
		if v == "" && missing == "" {
			missing = name
		}
		return url.PathEscape(v)
	})
	if missing != "" {
		return "", &MissingParamError{Param: missing}
	}
	return path, nil
}

func (rt Route) shape(body []byte) json.RawMessage {
	if !gjson.ValidBytes(body) {
		return nil
	}
	switch rt.Shape {
	case ShapeTokenUser:
		out, _ := json.Marshal(struct {
			AccessToken json.RawMessage `json:"accessToken"`
			User        json.RawMessage `json:"user"`
		}{
			AccessToken: orNull(raw(gjson.GetBytes(body, "accessToken"))),
			User:        orNull(raw(gjson.GetBytes(body, "user"))),
		})
		return out
	default:
		return raw(gjson.GetBytes(body, "data"))
	}
}

// Input is the part of an inbound request a route forwards.
type Input struct {
	Query         url.Values
	Body          []byte
	Authorization string
}

// Proxy runs routes against the backend API.
type Proxy struct {
	Client *upstream.Client
	Logger *zap.Logger
}

func New(client *upstream.Client, logger *zap.Logger) *Proxy {
	return &Proxy{Client: client, Logger: logger}
}

// Call forwards in along rt and returns the reshaped data.
func (p *Proxy) Call(ctx context.Context, rt Route, in Input) (json.RawMessage, error) {
	path, err := rt.UpstreamPath(in.Query)
	if err != nil {
		return nil, err
	}

	req := upstream.Request{Method: rt.Method, Path: path}
	if rt.ForwardQuery && len(in.Query) > 0 {
		req.Query = in.Query
	}
	switch rt.Body {
	case ForwardBody:
		if len(in.Body) > 0 {
			req.Body = in.Body
		}
	case EmptyObject:
		req.Body = []byte("{}")
	}
	if rt.Auth {
		req.Authorization = in.Authorization
	}

	start := time.Now()
	resp, err := p.Client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("proxied",
		zap.String("route", rt.Name),
		zap.String("upstream", path),
		zap.Int("status", resp.Status),
		zap.Duration("latency", time.Since(start)))

	return rt.shape(resp.Body), nil
}

// Handler serves rt over HTTP.
func (p *Proxy) Handler(rt Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		in := Input{
			Query:         c.Request.URL.Query(),
			Authorization: Authorization(c),
		}

		if rt.Body == ForwardBody || rt.OnSuccess != nil {
			body, err := readBody(c)
			if err != nil {
				WriteError(c, p.Logger, rt.FailureMessage, err)
				return
			}
			in.Body = body
		}

		data, err := p.Call(c.Request.Context(), rt, in)
		if err != nil {
			WriteError(c, p.Logger, rt.FailureMessage, err)
			return
		}

		if rt.OnSuccess != nil {
			rt.OnSuccess(session.FromContext(c), in.Body, gjson.ParseBytes(orNull(data)))
		}
		WriteSuccess(c, data)
	}
}

var errNotObject = errors.New("body must be a JSON object")

// readBody returns the inbound body as sent. Its fields are the backend's
// business; only an empty body or a JSON object is let through.
func readBody(c *gin.Context) ([]byte, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(trimmed) || !gjson.ParseBytes(trimmed).IsObject() {
		return nil, &BindError{Err: errNotObject}
	}
	return body, nil
}

// Authorization returns the inbound Authorization header, or a bearer header
// built from the session's token when the browser sent none.
func Authorization(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return h
	}
	st := session.FromContext(c)
	if st.UserToken == "" || st.UserToken == auth.NoAuthToken {
		return ""
	}
	return auth.BearerHeader(st.UserToken)
}

// Register mounts every route on r.
func (p *Proxy) Register(r gin.IRoutes, routes []Route) {
	for _, rt := range routes {
		r.Handle(rt.Method, rt.Path, p.Handler(rt))
	}
}
