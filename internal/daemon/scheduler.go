package daemon

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/synthdata/internal/config"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/jobs"
	"git.home.luguber.info/inful/synthdata/internal/logfields"
)

const (
	scheduleTag     = "schedule"
	recipeTagPrefix = "recipe:"
)

// SubmitFunc enqueues the named recipe.
type SubmitFunc func(name string, trigger jobs.Trigger) (string, error)

// Scheduler wraps a gocron scheduler holding one job per configured schedule.
type Scheduler struct {
	scheduler gocron.Scheduler
	submit    SubmitFunc
}

// ScheduledJob describes a registered schedule.
type ScheduledJob struct {
	Name    string    `json:"name"`
	Recipe  string    `json:"recipe"`
	NextRun time.Time `json:"next_run"`
}

// NewScheduler creates a scheduler that hands due recipes to submit.
func NewScheduler(submit SubmitFunc) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create gocron scheduler").Build()
	}
	return &Scheduler{scheduler: s, submit: submit}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler", slog.Int("schedules", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Apply replaces every registered schedule with schedules. On error the
// scheduler is left with the schedules added before the failing one.
func (s *Scheduler) Apply(schedules []config.ScheduleConfig) error {
	s.scheduler.RemoveByTags(scheduleTag)
	for _, sc := range schedules {
		def, err := definition(sc)
		if err != nil {
			return err
		}
		_, err = s.scheduler.NewJob(
			def,
			gocron.NewTask(s.execute, sc.Name, sc.Recipe),
			gocron.WithName(sc.Name),
			gocron.WithTags(scheduleTag, recipeTagPrefix+sc.Recipe),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to register schedule").
				WithContext("schedule", sc.Name).
				Build()
		}
		slog.Debug("Registered schedule", logfields.ScheduleName(sc.Name), logfields.Recipe(sc.Recipe))
	}
	return nil
}

// Jobs lists registered schedules ordered by name.
func (s *Scheduler) Jobs() []ScheduledJob {
	var out []ScheduledJob
	for _, j := range s.scheduler.Jobs() {
		sj := ScheduledJob{Name: j.Name()}
		for _, tag := range j.Tags() {
			if r, ok := strings.CutPrefix(tag, recipeTagPrefix); ok {
				sj.Recipe = r
			}
		}
		if next, err := j.NextRun(); err == nil {
			sj.NextRun = next
		}
		out = append(out, sj)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func definition(sc config.ScheduleConfig) (gocron.JobDefinition, error) {
	if sc.Cron != "" {
		return gocron.CronJob(sc.Cron, false), nil
	}
	every, err := time.ParseDuration(sc.Every)
	if err != nil || every <= 0 {
		return nil, errors.ValidationError("schedule interval must be a positive duration").
			WithContext("schedule", sc.Name).
			WithContext("every", sc.Every).
			Build()
	}
	return gocron.DurationJob(every), nil
}

// execute is called by gocron when a schedule is due.
func (s *Scheduler) execute(name, recipeName string) {
	id, err := s.submit(recipeName, jobs.TriggerScheduled)
	if err != nil {
		slog.Error("Failed to enqueue scheduled run",
			logfields.ScheduleName(name),
			logfields.Recipe(recipeName),
			logfields.Error(err))
		return
	}
	slog.Info("Enqueued scheduled run",
		logfields.ScheduleName(name),
		logfields.Recipe(recipeName),
		logfields.JobID(id))
}
