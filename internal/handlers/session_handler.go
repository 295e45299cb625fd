package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobboard-gateway/internal/dtos"
	"github.com/justsurfingit/jobboard-gateway/internal/services"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SessionHandler exposes the persisted stores to the browser. Every endpoint
// answers with the public view of the state after the change.
type SessionHandler struct {
	JobService *services.JobService
	Now        func() time.Time
}

func NewSessionHandler(jobs *services.JobService) *SessionHandler {
	return &SessionHandler{JobService: jobs, Now: time.Now}
}

func (h *SessionHandler) respond(c *gin.Context, st *session.State) {
	c.JSON(http.StatusOK, st.Public(h.Now()))
}

// Get is the GET /session endpoint
func (h *SessionHandler) Get(c *gin.Context) {
	h.respond(c, session.FromContext(c))
}

func (h *SessionHandler) ChangeUserType(c *gin.Context) {
	var req dtos.UserTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := session.FromContext(c)
	st.ChangeUserType(req.UserType)
	h.respond(c, st)
}

func (h *SessionHandler) SetUserAuthData(c *gin.Context) {
	var req dtos.AuthDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := session.FromContext(c)
	st.SetUserAuthData(req.Model())
	h.respond(c, st)
}

func (h *SessionHandler) SetUserToken(c *gin.Context) {
	var req dtos.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := session.FromContext(c)
	st.SetUserToken(req.Token)
	h.respond(c, st)
}

func (h *SessionHandler) SetPublicToken(c *gin.Context) {
	var req dtos.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := session.FromContext(c)
	st.SetPublicToken(req.Token)
	h.respond(c, st)
}

// Logout resets the auth store and forgets the user profile and the cached
// job data of the token being logged out.
func (h *SessionHandler) Logout(c *gin.Context) {
	st := session.FromContext(c)
	h.JobService.Forget(c.Request.Context(), services.CacheKey(st, c.GetHeader("Authorization")))
	st.LogoutUser()
	st.ClearUserStore()
	h.respond(c, st)
}

func (h *SessionHandler) ToggleNav(c *gin.Context) {
	st := session.FromContext(c)
	st.ToggleNavState()
	h.respond(c, st)
}

func (h *SessionHandler) ToggleMobileMenu(c *gin.Context) {
	st := session.FromContext(c)
	st.ToggleMobileMenu()
	h.respond(c, st)
}

func (h *SessionHandler) SetError(c *gin.Context) {
	var req dtos.RawPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := session.FromContext(c)
	st.SetError(req.Data)
	h.respond(c, st)
}

func (h *SessionHandler) ClearError(c *gin.Context) {
	st := session.FromContext(c)
	st.SetError(nil)
	h.respond(c, st)
}

func (h *SessionHandler) SetUserDetails(c *gin.Context) {
	var req dtos.RawPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := session.FromContext(c)
	st.SetUserDetails(req.Data)
	h.respond(c, st)
}

func (h *SessionHandler) ClearUserDetails(c *gin.Context) {
	st := session.FromContext(c)
	st.ClearUserStore()
	h.respond(c, st)
}

// Register mounts the /session endpoints on r.
func (h *SessionHandler) Register(r gin.IRouter) {
	g := r.Group("/session")
	{
		g.GET("", h.Get)
		g.PUT("/user-type", h.ChangeUserType)
		g.PUT("/auth-data", h.SetUserAuthData)
		g.PUT("/token", h.SetUserToken)
		g.PUT("/public-token", h.SetPublicToken)
		g.POST("/logout", h.Logout)
		g.POST("/nav/toggle", h.ToggleNav)
		g.POST("/mobile-menu/toggle", h.ToggleMobileMenu)
		g.PUT("/error", h.SetError)
		g.DELETE("/error", h.ClearError)
		g.PUT("/user", h.SetUserDetails)
		g.DELETE("/user", h.ClearUserDetails)
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
}
