// Package guards decides whether a visitor may open a page, based only on
// the flags stored in their session.
package guards

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobboard-gateway/internal/auth"
	"github.com/justsurfingit/jobboard-gateway/internal/models"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
)

const (
	Home               = "/"
	JobseekerDashboard = "/dashboard/jobseeker"
	RecruiterDashboard = "/dashboard/recruiter"
	AdminDashboard     = "/admin/dashboard"
)

// Decision is the outcome of a guard. An empty Redirect lets the visitor
// through.
type Decision struct {
	Redirect string `json:"redirect,omitempty"`
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

var allow = Decision{}

func redirect(to string) Decision { return Decision{Redirect: to} }

// Guard inspects the session for a navigation to target.
type Guard func(st *session.State, target string, now time.Time) Decision

// Auth requires a logged-in visitor and sends them from the landing page to
// their own dashboard.
func Auth(st *session.State, target string, now time.Time) Decision {
	if !st.Authenticated(now) {
		if target == Home {
			return allow
		}
		return redirect(Home)
	}
	if target == Home {
		if d := DashboardFor(st.CurrentUserType); d != "" {
			return redirect(d)
		}
	}
	return allow
}

// NoAuth keeps logged-in visitors off the sign-in pages.
func NoAuth(st *session.State, _ string, now time.Time) Decision {
	if st.Authenticated(now) && st.UserToken != auth.NoAuthToken {
		return redirect(Home)
	}
	return allow
}

func IsRecruiter(st *session.State, target string, _ time.Time) Decision {
	return requireRole(st, target, models.AccountRecruiter)
}

func IsJobseeker(st *session.State, target string, _ time.Time) Decision {
	return requireRole(st, target, models.AccountJobseeker)
}

func IsAdmin(st *session.State, target string, _ time.Time) Decision {
	return requireRole(st, target, models.AccountAdmin)
}

func requireRole(st *session.State, target string, want models.AccountType) Decision {
	if st.CurrentUserType == want {
		return allow
	}
	return redirectUnlessHere(target, Home)
}

// IsCodeExists requires a public token from a verified code.
func IsCodeExists(st *session.State, target string, _ time.Time) Decision {
	if st.HasPublicToken() {
		return allow
	}
	return redirectUnlessHere(target, Home)
}

// NoneAccountType only lets visitors without an account type through, e.g.
// the onboarding page that asks for one.
func NoneAccountType(st *session.State, target string, _ time.Time) Decision {
	if st.AccountType() == string(models.AccountGuest) {
		return allow
	}
	return redirectUnlessHere(target, Home)
}

// InternalErrorExists guards the error page, which only makes sense with an
// error to show.
func InternalErrorExists(st *session.State, target string, _ time.Time) Decision {
	if st.HasError() {
		return allow
	}
	return redirectUnlessHere(target, Home)
}

// Guest lets everybody through.
func Guest(*session.State, string, time.Time) Decision { return allow }

// redirectUnlessHere never sends a visitor to the page they asked for.
func redirectUnlessHere(target, to string) Decision {
	if target == to {
		return allow
	}
	return redirect(to)
}

// DashboardFor returns the landing page of a role.
func DashboardFor(t models.AccountType) string {
	switch t {
	case models.AccountJobseeker:
		return JobseekerDashboard
	case models.AccountRecruiter:
		return RecruiterDashboard
	case models.AccountAdmin:
		return AdminDashboard
	}
	return ""
}

var registry = map[string]Guard{
	"auth":                  Auth,
	"no-auth":               NoAuth,
	"is-recruiter":          IsRecruiter,
	"is-jobseeker":          IsJobseeker,
	"is-admin":              IsAdmin,
	"is-code-exists":        IsCodeExists,
	"none-account-type":     NoneAccountType,
	"internal-error-exists": InternalErrorExists,
	"guest":                 Guest,
}

// Lookup resolves guards by name.
func Lookup(names ...string) ([]Guard, error) {
	out := make([]Guard, 0, len(names))
	for _, n := range names {
		g, ok := registry[n]
		if !ok {
			return nil, fmt.Errorf("unknown guard %q", n)
		}
		out = append(out, g)
	}
	return out, nil
}

// MustLookup is Lookup for static route tables.
func MustLookup(names ...string) []Guard {
	gs, err := Lookup(names...)
	if err != nil {
		panic(err)
	}
	return gs
}

// Evaluate runs guards in order; the first redirect wins.
func Evaluate(st *session.State, target string, now time.Time, gs ...Guard) Decision {
	for _, g := range gs {
		if d := g(st, target, now); !d.Allowed() {
			return d
		}
	}
	return allow
}

// Require turns guards into gin middleware for page routes.
func Require(gs ...Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := Evaluate(session.FromContext(c), c.Request.URL.Path, time.Now(), gs...)
		if !d.Allowed() {
			c.Redirect(http.StatusFound, d.Redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}
