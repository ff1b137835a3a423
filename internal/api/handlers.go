package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/synthdata/internal/catalog"
	"git.home.luguber.info/inful/synthdata/internal/chart"
	"git.home.luguber.info/inful/synthdata/internal/eventstore"
	"git.home.luguber.info/inful/synthdata/internal/export"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/jobs"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// Response headers describing a generated table.
const (
	HeaderSeed       = "X-Synthdata-Seed"
	HeaderPoints     = "X-Synthdata-Points"
	HeaderAnomalies  = "X-Synthdata-Anomalies"
	HeaderObjectType = "X-Synthdata-Object-Type"
)

var errUnavailable = errors.DaemonError("service not configured").Build()

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	data := map[string]any{"status": "healthy"}
	if s.opts.Queue != nil {
		data["queue_length"] = s.opts.Queue.Length()
		data["active_jobs"] = len(s.opts.Queue.ActiveJobs())
	}
	s.Success(w, http.StatusOK, data)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	page, err := catalog.Page()
	if err != nil {
		s.Fail(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to render catalog").Build())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleListRecipes(w http.ResponseWriter, _ *http.Request) {
	list := []recipe.Recipe{}
	if s.opts.Recipes != nil {
		list = append(list, s.opts.Recipes.Recipes()...)
	}
	s.Success(w, http.StatusOK, list)
}

// handleGenerate runs an inline recipe synchronously and returns the table,
// or the plot when ?plot= names an image format.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.Error(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	rec, err := recipe.DecodeWithin(body, s.maxPoints())
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	q := r.URL.Query()
	name := q.Get("format")
	if name == "" {
		name = rec.Format
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		s.Fail(w, r, err)
		return
	}

	res, err := recipe.Execute(r.Context(), rec, nil)
	if err != nil {
		s.Fail(w, r, err)
		return
	}

	w.Header().Set(HeaderSeed, strconv.FormatUint(res.Seed, 10))
	w.Header().Set(HeaderPoints, strconv.Itoa(res.Points()))
	w.Header().Set(HeaderAnomalies, strconv.Itoa(res.Anomalies))

	if plotFormat := q.Get("plot"); plotFormat != "" {
		img, err := res.Plot(plotFormat)
		if err != nil {
			s.Fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", chart.ContentType(plotFormat))
		_, _ = w.Write(img)
		return
	}

	out, err := res.Encode(format)
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	_, _ = w.Write(out)
}

// JobRequest enqueues either a configured recipe by name or an inline one.
type JobRequest struct {
	Recipe   string         `json:"recipe,omitempty"`
	Inline   *recipe.Recipe `json:"inline,omitempty"`
	Priority jobs.Priority  `json:"priority,omitempty"`
}

// JobAccepted is returned for an enqueued job.
type JobAccepted struct {
	ID     string      `json:"id"`
	Status jobs.Status `json:"status"`
	Recipe string      `json:"recipe"`
	Job    string      `json:"job"`
	Run    string      `json:"run"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.opts.Queue == nil {
		s.Fail(w, r, errUnavailable.WithContext("component", "queue"))
		return
	}

	var req JobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.Fail(w, r, errors.WrapError(err, errors.CategoryValidation, "invalid job request").Build())
		return
	}

	rec, err := s.resolveRecipe(req)
	if err != nil {
		s.Fail(w, r, err)
		return
	}

	job := jobs.NewJob(rec, jobs.TriggerAPI)
	if req.Priority != 0 {
		job.Priority = req.Priority
	}
	if err := s.opts.Queue.Enqueue(job); err != nil {
		s.Fail(w, r, err)
		return
	}
	s.Success(w, http.StatusAccepted, JobAccepted{
		ID:     job.ID,
		Status: jobs.StatusQueued,
		Recipe: rec.Name,
		Job:    "/v1/jobs/" + job.ID,
		Run:    "/v1/runs/" + job.ID,
	})
}

func (s *Server) resolveRecipe(req JobRequest) (recipe.Recipe, error) {
	switch {
	case req.Recipe != "" && req.Inline != nil:
		return recipe.Recipe{}, errors.ValidationError("set either recipe or inline, not both").Build()
	case req.Inline != nil:
		rec := *req.Inline
		rec.Normalize()
		return rec, rec.ValidateWithin(s.maxPoints())
	case req.Recipe != "":
		if s.opts.Recipes != nil {
			if rec, ok := s.opts.Recipes.Recipe(req.Recipe); ok {
				return rec, nil
			}
		}
		return recipe.Recipe{}, errors.NotFoundError("recipe not found").WithContext("recipe", req.Recipe).Build()
	default:
		return recipe.Recipe{}, errors.ValidationError("recipe or inline is required").Build()
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.opts.Queue == nil {
		s.Fail(w, r, errUnavailable.WithContext("component", "queue"))
		return
	}
	s.Success(w, http.StatusOK, map[string]any{
		"queued": s.opts.Queue.Length(),
		"active": s.opts.Queue.ActiveJobs(),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.opts.Queue == nil {
		s.Fail(w, r, errUnavailable.WithContext("component", "queue"))
		return
	}
	id := chi.URLParam(r, "id")
	job, ok := s.opts.Queue.JobSnapshot(id)
	if !ok {
		s.Fail(w, r, errors.NotFoundError("job not found").WithContext("job_id", id).Build())
		return
	}
	s.Success(w, http.StatusOK, job)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Events == nil {
		s.Fail(w, r, errUnavailable.WithContext("component", "events"))
		return
	}
	summary, err := eventstore.ProjectRun(r.Context(), s.opts.Events, chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	s.Success(w, http.StatusOK, summary)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if s.opts.Artifacts == nil {
		s.Fail(w, r, errUnavailable.WithContext("component", "artifacts"))
		return
	}
	obj, err := s.opts.Artifacts.Get(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set(HeaderObjectType, string(obj.Type))
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	_, _ = w.Write(obj.Data)
}
