package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/dtos"
	"github.com/justsurfingit/jobboard-gateway/internal/proxy"
	"github.com/justsurfingit/jobboard-gateway/internal/services"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
)

// StoreHandler serves the store actions that talk to the backend. Answers
// use the same envelopes as the proxied /api routes.
type StoreHandler struct {
	AuthService *services.AuthService
	UserService *services.UserService
	JobService  *services.JobService
	Logger      *zap.Logger
}

func NewStoreHandler(a *services.AuthService, u *services.UserService, j *services.JobService, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{AuthService: a, UserService: u, JobService: j, Logger: logger}
}

func (h *StoreHandler) reply(c *gin.Context, v any, err error) {
	if err != nil {
		proxy.WriteError(c, h.Logger, "", err)
		return
	}
	if raw, ok := v.(json.RawMessage); ok {
		proxy.WriteSuccess(c, raw)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		proxy.WriteError(c, h.Logger, "", err)
		return
	}
	proxy.WriteSuccess(c, data)
}

// GetCode is the POST /store/auth/code endpoint
func (h *StoreHandler) GetCode(c *gin.Context) {
	var req dtos.GetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		proxy.WriteError(c, h.Logger, "", &proxy.BindError{Err: err})
		return
	}
	data, err := h.AuthService.LoginOrSignupUser(c.Request.Context(), session.FromContext(c), req)
	h.reply(c, data, err)
}

// VerifyCode is the POST /store/auth/verify endpoint
func (h *StoreHandler) VerifyCode(c *gin.Context) {
	var req dtos.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		proxy.WriteError(c, h.Logger, "", &proxy.BindError{Err: err})
		return
	}
	data, err := h.AuthService.VerifyAuthCode(c.Request.Context(), session.FromContext(c), req)
	h.reply(c, data, err)
}

// RefreshUser reloads the profile of whoever is logged in.
func (h *StoreHandler) RefreshUser(c *gin.Context) {
	data, err := h.UserService.Refresh(c.Request.Context(), session.FromContext(c), proxy.Authorization(c))
	h.reply(c, data, err)
}

// credentials returns the job cache key and the Authorization header to
// forward for the request.
func credentials(c *gin.Context) (key, authorization string) {
	authorization = proxy.Authorization(c)
	return services.CacheKey(session.FromContext(c), authorization), authorization
}

func (h *StoreHandler) CachedJobs(c *gin.Context) {
	key, _ := credentials(c)
	data, err := h.JobService.Cached(c.Request.Context(), key)
	h.reply(c, data, err)
}

func (h *StoreHandler) FetchRecruiterJobs(c *gin.Context) {
	key, authz := credentials(c)
	jobs, err := h.JobService.FetchRecruiterJobs(c.Request.Context(), key, authz, c.Request.URL.Query())
	h.reply(c, jobs, err)
}

func (h *StoreHandler) FetchJobStats(c *gin.Context) {
	key, authz := credentials(c)
	stats, err := h.JobService.FetchJobStats(c.Request.Context(), key, authz)
	h.reply(c, stats, err)
}

func (h *StoreHandler) FetchUserJobApplications(c *gin.Context) {
	key, authz := credentials(c)
	apps, err := h.JobService.FetchUserJobApplications(c.Request.Context(), key, authz)
	h.reply(c, apps, err)
}

func (h *StoreHandler) FetchRecruiterSingle(c *gin.Context) {
	data, err := h.JobService.FetchRecruiterSingle(c.Request.Context(), proxy.Authorization(c), c.Param("id"))
	h.reply(c, data, err)
}

func (h *StoreHandler) FetchJobseekerSingle(c *gin.Context) {
	data, err := h.JobService.FetchJobseekerSingle(c.Request.Context(), proxy.Authorization(c), c.Param("id"))
	h.reply(c, data, err)
}

func (h *StoreHandler) FetchSingleApplication(c *gin.Context) {
	data, err := h.JobService.FetchSingleApplication(c.Request.Context(), proxy.Authorization(c), c.Param("id"))
	h.reply(c, data, err)
}

// Register mounts the /store endpoints on r.
func (h *StoreHandler) Register(r gin.IRouter) {
	g := r.Group("/store")
	{
		g.POST("/auth/code", h.GetCode)
		g.POST("/auth/verify", h.VerifyCode)

		g.POST("/user/refresh", h.RefreshUser)

		g.GET("/jobs", h.CachedJobs)
		g.POST("/jobs/recruiter", h.FetchRecruiterJobs)
		g.POST("/jobs/stats", h.FetchJobStats)
		g.POST("/jobs/applications", h.FetchUserJobApplications)
		g.GET("/jobs/recruiter/:id", h.FetchRecruiterSingle)
		g.GET("/jobs/jobseeker/:id", h.FetchJobseekerSingle)
		g.GET("/applications/:id", h.FetchSingleApplication)
	}
}
