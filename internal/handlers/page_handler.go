package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobboard-gateway/internal/guards"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
)

// Page is a front-end route and the guards protecting it, in order.
type Page struct {
	Path   string
	Guards []string
}

// Pages is the front-end route table.
var Pages = []Page{
	{Path: guards.Home, Guards: []string{"auth"}},
	{Path: "/jobs", Guards: []string{"guest"}},
	{Path: "/jobs/:slug", Guards: []string{"guest"}},

	{Path: "/auth/signin/jobseeker", Guards: []string{"no-auth"}},
	{Path: "/auth/signup/jobseeker", Guards: []string{"no-auth"}},
	{Path: "/auth/signin/recruiter", Guards: []string{"no-auth"}},
	{Path: "/auth/signin/admin", Guards: []string{"no-auth"}},
	{Path: "/auth/verify", Guards: []string{"no-auth", "is-code-exists"}},
	{Path: "/onboarding", Guards: []string{"auth", "none-account-type"}},

	{Path: guards.JobseekerDashboard, Guards: []string{"auth", "is-jobseeker"}},
	{Path: "/dashboard/jobseeker/applications", Guards: []string{"auth", "is-jobseeker"}},
	{Path: "/dashboard/jobseeker/profile", Guards: []string{"auth", "is-jobseeker"}},
	{Path: "/dashboard/jobseeker/settings", Guards: []string{"auth", "is-jobseeker"}},

	{Path: guards.RecruiterDashboard, Guards: []string{"auth", "is-recruiter"}},
	{Path: "/dashboard/recruiter/jobs", Guards: []string{"auth", "is-recruiter"}},
	{Path: "/dashboard/recruiter/jobs/:id", Guards: []string{"auth", "is-recruiter"}},
	{Path: "/dashboard/recruiter/applications", Guards: []string{"auth", "is-recruiter"}},
	{Path: "/dashboard/recruiter/subscription", Guards: []string{"auth", "is-recruiter"}},

	{Path: guards.AdminDashboard, Guards: []string{"auth", "is-admin"}},

	{Path: "/error", Guards: []string{"internal-error-exists"}},
}

// PageHandler serves the front-end entry point behind the page guards.
type PageHandler struct {
	// StaticDir holds the built front end. When empty, pages answer with the
	// matched route instead.
	StaticDir string
	Now       func() time.Time
	pages     map[string][]guards.Guard
}

func NewPageHandler(staticDir string) (*PageHandler, error) {
	h := &PageHandler{StaticDir: staticDir, Now: time.Now, pages: make(map[string][]guards.Guard, len(Pages))}
	for _, p := range Pages {
		gs, err := guards.Lookup(p.Guards...)
		if err != nil {
			return nil, err
		}
		h.pages[p.Path] = gs
	}
	return h, nil
}

func (h *PageHandler) Serve(c *gin.Context) {
	if h.StaticDir == "" {
		c.JSON(http.StatusOK, gin.H{"page": c.FullPath()})
		return
	}
	c.File(filepath.Join(h.StaticDir, "index.html"))
}

// Register mounts every page with its guards.
func (h *PageHandler) Register(r gin.IRouter) {
	for _, p := range Pages {
		r.GET(p.Path, guards.Require(h.pages[p.Path]...), h.Serve)
	}
	if h.StaticDir != "" {
		r.Static("/_assets", filepath.Join(h.StaticDir, "_assets"))
	}
	r.GET("/route-check", h.RouteCheck)
}

// RouteCheck is the GET /route-check endpoint. The client router asks it
// before navigating: guards come from the "guards" query parameter, or from
// the page table when omitted.
func (h *PageHandler) RouteCheck(c *gin.Context) {
	to := c.Query("to")
	if to == "" || !strings.HasPrefix(to, "/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an absolute path"})
		return
	}

	var gs []guards.Guard
	if names := c.Query("guards"); names != "" {
		var err error
		gs, err = guards.Lookup(strings.Split(names, ",")...)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		gs = h.match(to)
	}

	d := guards.Evaluate(session.FromContext(c), to, h.Now(), gs...)
	c.JSON(http.StatusOK, gin.H{
		"to":       to,
		"allowed":  d.Allowed(),
		"redirect": d.Redirect,
	})
}

// match finds the guards of the page table entry that serves path. Unknown
// paths carry no guards.
func (h *PageHandler) match(path string) []guards.Guard {
	if gs, ok := h.pages[path]; ok {
		return gs
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for pattern, gs := range h.pages {
		if matchPattern(strings.Split(strings.Trim(pattern, "/"), "/"), segs) {
			return gs
		}
	}
	return nil
}

func matchPattern(pattern, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if p != segs[i] {
			return false
		}
	}
	return true
}
