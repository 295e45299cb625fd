package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/models"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
	"github.com/justsurfingit/jobboard-gateway/internal/storage"
	"github.com/justsurfingit/jobboard-gateway/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

// fakeBackend answers every call with status and body and remembers the
// last request it saw.
func fakeBackend(t *testing.T, status int, body string) (*httptest.Server, *recorded) {
	t.Helper()
	last := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*last = recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(b),
		}
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func newRouter(t *testing.T, baseURL string) *gin.Engine {
	t.Helper()
	client, err := upstream.NewClient(baseURL+"/api/v1/", 2*time.Second)
	require.NoError(t, err)

	store := session.NewCookieStore(
		session.CookieOptions{Name: "jb_session", MaxAge: time.Hour},
		storage.NewSerializer(storage.NewCipher("proxy-test")),
	)

	r := gin.New()
	r.Use(session.Middleware(store, zap.NewNop()))
	New(client, zap.NewNop()).Register(r, Routes())
	r.GET("/state", func(c *gin.Context) {
		st := session.FromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"token":    st.UserToken,
			"userType": st.CurrentUserType,
			"account":  st.AccountType(),
			"phone":    json.RawMessage(orNull(st.CurrentAuthPhone)),
		})
	})
	return r
}

func serve(r http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUpstreamPath(t *testing.T) {
	p, err := UpdateJobseekerSettings.UpstreamPath(map[string][]string{"settingsId": {"s 1"}})
	require.NoError(t, err)
	assert.Equal(t, "user-settings/s%201/user", p)

	_, err = UpdateJobseekerSettings.UpstreamPath(nil)
	var missing *MissingParamError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "settingsId", missing.Param)

	p, err = JobseekerProfile.UpstreamPath(nil)
	require.NoError(t, err)
	assert.Equal(t, "users/my-profile", p)
}

func TestRoutesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, rt := range Routes() {
		key := rt.Method + " " + rt.Path
		assert.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true
		assert.NotEmpty(t, rt.Name)
		assert.NotEmpty(t, rt.Upstream)
	}
}

func TestSuccessEnvelopeLiftsData(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusOK, `{"status":"success","data":{"id":"u-1","firstName":"Ada"}}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodGet, "/api/jobseeker/my-profile", "", map[string]string{"Authorization": "Bearer abc"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"data":{"id":"u-1","firstName":"Ada"}}`, rec.Body.String())
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/api/v1/users/my-profile", last.Path)
	assert.Equal(t, "Bearer abc", last.Auth)
}

func TestTemplatedPathAndBody(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusOK, `{"data":{"twoFa":true}}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodPatch, "/api/settings/jobseeker/update?settingsId=set-9", `{"twoFa":true}`,
		map[string]string{"Authorization": "Bearer abc"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.MethodPatch, last.Method)
	assert.Equal(t, "/api/v1/user-settings/set-9/user", last.Path)
	assert.Empty(t, last.Query, "settings update does not forward the query")
	assert.JSONEq(t, `{"twoFa":true}`, last.Body)
}

func TestForwardQuery(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusOK, `{"data":[]}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodGet, "/api/job-applications/recruiter/get-single-application-detailed?jobApplicationId=app-1&tab=interview", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/job-application-tracking/app-1/detailed", last.Path)
	assert.Contains(t, last.Query, "tab=interview")
	assert.Contains(t, last.Query, "jobApplicationId=app-1")
}

func TestMissingQueryParameterIsRejectedLocally(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusOK, `{"data":null}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodDelete, "/api/jobseeker/educational-background/delete", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "educationBackgroundId")
	assert.Empty(t, last.Path, "backend must not be called")
}

func TestRecruiterSubscribeSendsEmptyObject(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusCreated, `{"data":{"subscribed":true}}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodPost, "/api/subscription/recruiter/subscribe", `{"ignored":true}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{}", last.Body)
	assert.JSONEq(t, `{"status":200,"data":{"subscribed":true}}`, rec.Body.String())
}

func TestUpstreamErrorWithBody(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusConflict, `{"message":"Email already taken","status":"error","errorCode":"E_DUP"}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodPut, "/api/jobseeker/update-profile", `{"email":"a@b.c"}`, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusConflict, env.StatusCode)
	assert.Equal(t, "Email already taken", env.Message)
	assert.Equal(t, "", env.Stack)
	assert.JSONEq(t, `{"message":"Email already taken","status":"error","errorCode":"E_DUP"}`, string(env.Data))
}

func TestUpstreamErrorMessageList(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusBadRequest, `{"message":["name is required","email must be an email"]}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodPut, "/api/jobseeker/update-profile", `{}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required; email must be an email")
}

func TestUpstreamErrorWithoutBody(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusServiceUnavailable, "")
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodGet, "/api/recruiter/job/stats", "", nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"statusCode":503,"message":"An error occurred","stack":"","data":null}`, rec.Body.String())
}

func TestTransportFailureIsInternalError(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, "")
	base := srv.URL
	srv.Close()
	r := newRouter(t, base)

	rec := serve(r, http.MethodGet, "/api/recruiter/my-profile", "", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"statusCode":500,"message":"Internal server error","stack":"","data":null}`, rec.Body.String())
}

func TestJobseekerAuthenticateReshapesAndStoresSession(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusOK, `{"accessToken":"tok-1","user":{"id":"u-7","accountType":"jobseeker"}}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodPost, "/api/auth/jobseeker/authenticate", `{"email":"ada@example.com","password":"pw"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"data":{"accessToken":"tok-1","user":{"id":"u-7","accountType":"jobseeker"}}}`, rec.Body.String())
	assert.Equal(t, "/api/v1/auth/jobseeker/authenticate", last.Path)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.AddCookie(cookies[0])
	state := httptest.NewRecorder()
	r.ServeHTTP(state, req)
	assert.JSONEq(t, `{"token":"tok-1","userType":"jobseeker","account":"jobseeker","phone":null}`, state.Body.String())
}

func TestJobseekerAuthenticateFailureMessage(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusUnauthorized, `{"error":"bad credentials"}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodPost, "/api/auth/jobseeker/authenticate", `{"email":"ada@example.com","password":"pw"}`, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Authentication failed"`)
	assert.Empty(t, rec.Result().Cookies(), "failed login leaves the session alone")
}

func TestAuthRoutesForwardBodyVerbatim(t *testing.T) {
	bodies := map[string]string{
		AdminAuthenticate.Path:     `{"username":"root","password":"x"}`,
		JobseekerAuthenticate.Path: `{"phoneNumber":"+2348012345678","password":"pw","remember":true}`,
		JobseekerRegister.Path:     `{"firstName":"Ada","lastName":"L","phoneNumber":{"code":"+234","number":"8012345678"},"password":"pw"}`,
		VerifyOTP.Path:             `{ "otp" : "0000", "extra": [1, 2, {"nested": null}] }`,
		GetCode.Path:               `{"phoneNumber":{"code":"+1","number":"5550100"},"channel":"sms"}`,
		VerifyCode.Path:            `{"code":1234,"phoneNumber":"+15550100"}`,
	}

	for _, rt := range Routes() {
		if rt.Body != ForwardBody || rt.Auth {
			continue
		}
		body, ok := bodies[rt.Path]
		require.True(t, ok, "no body for %s", rt.Path)

		t.Run(rt.Name, func(t *testing.T) {
			srv, last := fakeBackend(t, http.StatusOK, `{"data":{}}`)
			r := newRouter(t, srv.URL)

			rec := serve(r, rt.Method, rt.Path, body, nil)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "/api/v1/"+rt.Upstream, last.Path)
			assert.Equal(t, body, last.Body)
		})
	}
}

func TestNonObjectBodyIsRejectedLocally(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusOK, `{}`)
	r := newRouter(t, srv.URL)

	for _, body := range []string{`not json`, `["a"]`, `"text"`} {
		rec := serve(r, http.MethodPost, "/api/auth/admin/authenticate", body, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		var env ErrorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "Validation failed", env.Message)
		assert.Contains(t, env.Errors, "body")
	}
	assert.Empty(t, last.Path)
}

func TestAdminLoginFallsBackToAdminRole(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{"data":{"accessToken":"adm","adminId":"a-1"}}`)
	r := newRouter(t, srv.URL)

	rec := serve(r, http.MethodPost, "/api/auth/admin/authenticate", `{"email":"root@example.com","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	state := httptest.NewRecorder()
	r.ServeHTTP(state, req)
	assert.JSONEq(t, `{"token":"adm","userType":"admin","account":"admin","phone":null}`, state.Body.String())
}

func TestGetCodeRecordsPhoneAndSessionTokenIsInjected(t *testing.T) {
	srv, last := fakeBackend(t, http.StatusOK, `{"data":{"sent":true}}`)
	r := newRouter(t, srv.URL)

	body := `{"phoneNumber":{"code":"+234","number":"8012345678","country":{"name":"Nigeria","shortCode":"NG"}},"username":"ada"}`
	rec := serve(r, http.MethodPost, "/api/auth/get-code", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, last.Body)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	state := httptest.NewRecorder()
	r.ServeHTTP(state, req)
	assert.Contains(t, state.Body.String(), `"number":"8012345678"`)

	login := serve(r, http.MethodPost, "/api/auth/verify-code", `{"phoneNumber":"+2348012345678","code":1234}`, nil)
	require.Equal(t, http.StatusOK, login.Code)
	// the fake backend has no token in this answer, so no session change
	assert.Empty(t, login.Result().Cookies())

	srv2, last2 := fakeBackend(t, http.StatusOK, `{"data":{"accessToken":"tok-9","accountType":"recruiter"}}`)
	r2 := newRouter(t, srv2.URL)
	login = serve(r2, http.MethodPost, "/api/auth/verify-code", `{"phoneNumber":"+2348012345678","code":"1234"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)
	cookies := login.Result().Cookies()
	require.Len(t, cookies, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/recruiter/my-profile", nil)
	req.AddCookie(cookies[0])
	r2.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Bearer tok-9", last2.Auth)
}

func TestCaptureLoginIgnoresUnknownRoles(t *testing.T) {
	st := session.New()
	captureLogin("")(st, nil, gjson.Parse(`{"accessToken":"t","accountType":"superuser"}`))

	assert.Equal(t, "t", st.UserToken)
	assert.Equal(t, models.AccountGuest, st.CurrentUserType)
	assert.Equal(t, "superuser", st.AccountType())
}
