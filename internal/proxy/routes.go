package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/justsurfingit/jobboard-gateway/internal/models"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
)

// Auth
var (
	AdminAuthenticate = Route{
		Name: "admin-authenticate", Method: http.MethodPost,
		Path: "/api/auth/admin/authenticate", Upstream: "auth/admin",
		Body:      ForwardBody,
		OnSuccess: captureLogin(models.AccountAdmin),
	}
	VerifyOTP = Route{
		Name: "verify-otp", Method: http.MethodPost,
		Path: "/api/auth/verify-otp", Upstream: "auth/jobseeker/verify-code",
		Body:      ForwardBody,
		OnSuccess: captureLogin(models.AccountJobseeker),
	}
	JobseekerAuthenticate = Route{
		Name: "jobseeker-authenticate", Method: http.MethodPost,
		Path: "/api/auth/jobseeker/authenticate", Upstream: "auth/jobseeker/authenticate",
		Body:           ForwardBody,
		Shape:          ShapeTokenUser,
		FailureMessage: "Authentication failed",
		OnSuccess:      captureLogin(models.AccountJobseeker),
	}
	JobseekerRegister = Route{
		Name: "jobseeker-register", Method: http.MethodPost,
		Path: "/api/auth/jobseeker/register", Upstream: "auth/signup/jobseeker",
		Body:      ForwardBody,
		OnSuccess: captureLogin(models.AccountJobseeker),
	}
	GetCode = Route{
		Name: "get-code", Method: http.MethodPost,
		Path: "/api/auth/get-code", Upstream: "auth/user/get-code",
		Body:      ForwardBody,
		OnSuccess: capturePhone,
	}
	VerifyCode = Route{
		Name: "verify-code", Method: http.MethodPost,
		Path: "/api/auth/verify-code", Upstream: "auth/user/verify-code",
		Body:      ForwardBody,
		OnSuccess: captureLogin(""),
	}
)

// Profiles and settings
var (
	UpdateJobseekerSettings = Route{
		Name: "jobseeker-settings-update", Method: http.MethodPatch,
		Path: "/api/settings/jobseeker/update", Upstream: "user-settings/{settingsId}/user",
		Auth: true, Body: ForwardBody,
	}
	JobseekerProfile = Route{
		Name: "jobseeker-my-profile", Method: http.MethodGet,
		Path: "/api/jobseeker/my-profile", Upstream: "users/my-profile",
		Auth: true,
	}
	UpdateJobseekerProfile = Route{
		Name: "jobseeker-update-profile", Method: http.MethodPut,
		Path: "/api/jobseeker/update-profile", Upstream: "users/update-profile",
		Auth: true, Body: ForwardBody,
	}
	DeleteEducationBackground = Route{
		Name: "education-background-delete", Method: http.MethodDelete,
		Path: "/api/jobseeker/educational-background/delete", Upstream: "education-background/{educationBackgroundId}",
		Auth: true,
	}
	RecruiterProfile = Route{
		Name: "recruiter-my-profile", Method: http.MethodGet,
		Path: "/api/recruiter/my-profile", Upstream: "recruiters/my-profile",
		Auth: true,
	}
)

// Job listings
var (
	JobseekerSingleJob = Route{
		Name: "jobseeker-job-single", Method: http.MethodGet,
		Path: "/api/jobseeker/jobs/get-single", Upstream: "job-listing/{jobListingId}",
		Auth: true,
	}
	RecruiterJobs = Route{
		Name: "recruiter-jobs", Method: http.MethodGet,
		Path: "/api/recruiter/job/fetch", Upstream: "job-listing/recruiter/my-jobs",
		Auth: true, ForwardQuery: true,
	}
	RecruiterJobStats = Route{
		Name: "recruiter-job-stats", Method: http.MethodGet,
		Path: "/api/recruiter/job/stats", Upstream: "job-listing/recruiter/stats",
		Auth: true,
	}
	RecruiterSingleJob = Route{
		Name: "recruiter-job-single", Method: http.MethodGet,
		Path: "/api/recruiter/job/fetch-single", Upstream: "job-listing/recruiter/{jobListingId}",
		Auth: true,
	}
)

// Job applications
var (
	RecruiterApplicationDetailed = Route{
		Name: "recruiter-application-detailed", Method: http.MethodGet,
		Path:     "/api/job-applications/recruiter/get-single-application-detailed",
		Upstream: "job-application-tracking/{jobApplicationId}/detailed",
		Auth:     true, ForwardQuery: true,
	}
	RecruiterApplications = Route{
		Name: "recruiter-applications", Method: http.MethodGet,
		Path:     "/api/job-applications/recruiter/get-all-applications",
		Upstream: "job-application-tracking/recruiter/applications",
		Auth:     true, ForwardQuery: true,
	}
	JobListingApplications = Route{
		Name: "joblisting-applications", Method: http.MethodGet,
		Path:     "/api/job-applications/recruiter/get-joblisting-applications",
		Upstream: "job-application-tracking/{jobApplicationId}",
		Auth:     true,
	}
	RecruiterStats = Route{
		Name: "recruiter-stats", Method: http.MethodGet,
		Path:     "/api/job-applications/recruiter/recruiter-stats",
		Upstream: "job-application-tracking/recruiter/stats",
		Auth:     true,
	}
	JobseekerApplications = Route{
		Name: "jobseeker-applications", Method: http.MethodGet,
		Path:     "/api/job-applications/jobseeker/my-applications",
		Upstream: "job-application-tracking/applied/my-applications",
		Auth:     true,
	}
	SingleApplication = Route{
		Name: "single-application", Method: http.MethodGet,
		Path:     "/api/job-applications/get-single-application",
		Upstream: "job-application-tracking/applied/{jobApplicationId}",
		Auth:     true,
	}
)

// Subscriptions
var (
	SubscribePaid = Route{
		Name: "subscribe-paid", Method: http.MethodPost,
		Path: "/api/subscription/subscribe-paid", Upstream: "paystack-service/subscribe/{packageId}",
		Auth: true, Body: ForwardBody,
	}
	RecruiterSubscribe = Route{
		Name: "recruiter-subscribe", Method: http.MethodPost,
		Path: "/api/subscription/recruiter/subscribe", Upstream: "subscription/recruiter/subscribe",
		Auth: true, Body: EmptyObject,
	}
)

// Routes lists every proxied endpoint.
func Routes() []Route {
	return []Route{
		AdminAuthenticate, VerifyOTP, JobseekerAuthenticate, JobseekerRegister, GetCode, VerifyCode,
		UpdateJobseekerSettings, JobseekerProfile, UpdateJobseekerProfile, DeleteEducationBackground, RecruiterProfile,
		JobseekerSingleJob, RecruiterJobs, RecruiterJobStats, RecruiterSingleJob,
		RecruiterApplicationDetailed, RecruiterApplications, JobListingApplications, RecruiterStats,
		JobseekerApplications, SingleApplication,
		SubscribePaid, RecruiterSubscribe,
	}
}

// captureLogin stores the access token of a successful login and, when the
// answer says who logged in, the account details. fallback is the role
// assumed when the backend does not name one.
func captureLogin(fallback models.AccountType) func(*session.State, []byte, gjson.Result) {
	return func(st *session.State, _ []byte, data gjson.Result) {
		token := data.Get("accessToken").String()
		if token == "" {
			return
		}
		st.SetUserToken(token)

		accountType := firstString(data, "accountType", "user.accountType")
		if accountType == "" {
			accountType = string(fallback)
		}
		if accountType == "" {
			return
		}
		if t := models.AccountType(accountType); t.Valid() {
			st.ChangeUserType(t)
		}
		st.SetUserAuthData(models.UserAuthData{
			AccountType: accountType,
			UserID:      firstString(data, "userId", "user.id", "user._id"),
			AdminID:     firstString(data, "adminId", "user.adminId"),
			RecruiterID: firstString(data, "recruiterId", "user.recruiterId"),
		})
	}
}

func capturePhone(st *session.State, body []byte, _ gjson.Result) {
	phone := gjson.GetBytes(body, "phoneNumber")
	if phone.Exists() {
		st.SetAuthPhone(json.RawMessage(phone.Raw))
	}
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}
