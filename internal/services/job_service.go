package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/cache"
	"github.com/justsurfingit/jobboard-gateway/internal/models"
	"github.com/justsurfingit/jobboard-gateway/internal/proxy"
)

// JobService backs the job store: it fetches listings, stats and
// applications and keeps the lists cached for the session.
type JobService struct {
	Proxy  *proxy.Proxy
	Cache  cache.JobCache
	Logger *zap.Logger
}

func NewJobService(p *proxy.Proxy, c cache.JobCache, logger *zap.Logger) *JobService {
	return &JobService{Proxy: p, Cache: c, Logger: logger}
}

// Cached returns whatever the store currently holds for key.
func (s *JobService) Cached(ctx context.Context, key string) (models.JobData, error) {
	if key == "" {
		return models.JobData{}, nil
	}
	data, err := s.Cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return models.JobData{}, nil
	}
	return data, err
}

// FetchRecruiterJobs returns the recruiter's listings exactly as the backend
// sent them, paginated or not, and caches that answer.
func (s *JobService) FetchRecruiterJobs(ctx context.Context, key, authorization string, query url.Values) (json.RawMessage, error) {
	data, err := s.Proxy.Call(ctx, proxy.RecruiterJobs, proxy.Input{Query: query, Authorization: authorization})
	if err != nil {
		return nil, err
	}
	s.checkList("recruiter jobs", data)
	s.update(ctx, key, func(d *models.JobData) { d.JobList = data })
	return data, nil
}

func (s *JobService) FetchJobStats(ctx context.Context, key, authorization string) (json.RawMessage, error) {
	data, err := s.Proxy.Call(ctx, proxy.RecruiterJobStats, proxy.Input{Authorization: authorization})
	if err != nil {
		return nil, err
	}
	s.update(ctx, key, func(d *models.JobData) { d.JobStats = data })
	return data, nil
}

func (s *JobService) FetchUserJobApplications(ctx context.Context, key, authorization string) (json.RawMessage, error) {
	data, err := s.Proxy.Call(ctx, proxy.JobseekerApplications, proxy.Input{Authorization: authorization})
	if err != nil {
		return nil, err
	}
	s.checkList("job applications", data)
	s.update(ctx, key, func(d *models.JobData) { d.JobApplicationList = data })
	return data, nil
}

// Forget drops the cached job data for key.
func (s *JobService) Forget(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Cache.Delete(ctx, key); err != nil {
		s.Logger.Warn("job cache delete failed", zap.Error(err))
	}
}

func (s *JobService) FetchRecruiterSingle(ctx context.Context, authorization, jobID string) (json.RawMessage, error) {
	return s.Proxy.Call(ctx, proxy.RecruiterSingleJob, proxy.Input{
		Query:         url.Values{"jobListingId": {jobID}},
		Authorization: authorization,
	})
}

func (s *JobService) FetchJobseekerSingle(ctx context.Context, authorization, jobID string) (json.RawMessage, error) {
	return s.Proxy.Call(ctx, proxy.JobseekerSingleJob, proxy.Input{
		Query:         url.Values{"jobListingId": {jobID}},
		Authorization: authorization,
	})
}

func (s *JobService) FetchSingleApplication(ctx context.Context, authorization, appID string) (json.RawMessage, error) {
	return s.Proxy.Call(ctx, proxy.SingleApplication, proxy.Input{
		Query:         url.Values{"jobApplicationId": {appID}},
		Authorization: authorization,
	})
}

// update applies set to the cached job data. Cache failures only cost a
// refetch, so they are logged and swallowed.
func (s *JobService) update(ctx context.Context, key string, set func(*models.JobData)) {
	if key == "" {
		return
	}
	data, err := s.Cache.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.Logger.Warn("job cache read failed", zap.Error(err))
	}
	set(&data)
	if err := s.Cache.Put(ctx, key, data); err != nil {
		s.Logger.Warn("job cache write failed", zap.Error(err))
	}
}

// checkList logs answers that are neither a list nor a paginated list. They
// are still passed on untouched.
func (s *JobService) checkList(name string, data json.RawMessage) {
	if _, ok := listItems(data); !ok {
		s.Logger.Warn("unexpected job list shape",
			zap.String("list", name),
			zap.String("type", gjson.ParseBytes(data).Type.String()))
	}
}

// listItems picks the items out of a bare array or a paginated
// {"docs": [...]} object. A missing or null answer is an empty list.
func listItems(data json.RawMessage) (gjson.Result, bool) {
	if len(data) == 0 {
		return gjson.Result{}, true
	}
	r := gjson.ParseBytes(data)
	switch {
	case r.IsArray():
		return r, true
	case r.IsObject() && r.Get("docs").IsArray():
		return r.Get("docs"), true
	case r.Type == gjson.Null:
		return gjson.Result{}, true
	}
	return gjson.Result{}, false
}
