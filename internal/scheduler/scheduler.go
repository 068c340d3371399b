// Package scheduler dispatches daily and fixed-interval jobs on top of
// robfig/cron in the bot's timezone.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Job is a scheduled callback. ctx is the dispatcher's base context.
type Job func(ctx context.Context)

// Recorder receives job timings. *observability.Recorder satisfies it.
type Recorder interface {
	ObserveJob(name string, d time.Duration)
	JobSkipped(name string)
}

// Dispatcher registers jobs and runs them on cron's goroutines. Every job
// carries its own single-flight guard: a trigger that fires while the
// previous run is still active is skipped.
type Dispatcher struct {
	cron     *cron.Cron
	loc      *time.Location
	baseCtx  context.Context
	tracer   trace.Tracer
	recorder Recorder
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a dispatcher. A nil tracer disables spans.
func New(baseCtx context.Context, loc *time.Location, tracer trace.Tracer, recorder Recorder, logger zerolog.Logger) *Dispatcher {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.UTC
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("scheduler")
	}

	log := logger.With().Str("component", "scheduler").Logger()
	return &Dispatcher{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
		loc:      loc,
		baseCtx:  baseCtx,
		tracer:   tracer,
		recorder: recorder,
		now:      time.Now,
		logger:   log,
	}
}

// Daily runs job every day at hour:minute in the dispatcher's timezone.
func (d *Dispatcher) Daily(name string, hour, minute int, job Job) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("daily %s: invalid time %02d:%02d", name, hour, minute)
	}
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if _, err := d.cron.AddFunc(spec, d.wrap(name, job)); err != nil {
		return fmt.Errorf("daily %s: %w", name, err)
	}
	d.logger.Info().Str("job", name).Str("at", fmt.Sprintf("%02d:%02d", hour, minute)).Msg("Registered daily job")
	return nil
}

// Every runs job each period, the first time after the initial delay.
func (d *Dispatcher) Every(name string, period, first time.Duration, job Job) error {
	if period <= 0 {
		return fmt.Errorf("every %s: period must be positive", name)
	}
	if first < 0 {
		first = 0
	}
	d.cron.Schedule(&intervalSchedule{period: period, first: first}, cron.FuncJob(d.wrap(name, job)))
	d.logger.Info().Str("job", name).Dur("every", period).Dur("first", first).Msg("Registered interval job")
	return nil
}

// Start begins dispatching in the background.
func (d *Dispatcher) Start() {
	d.cron.Start()
	d.logger.Info().Int("jobs", len(d.cron.Entries())).Str("tz", d.loc.String()).Msg("Scheduler started")
}

// Stop halts new triggers and waits for running jobs to return.
func (d *Dispatcher) Stop() {
	<-d.cron.Stop().Done()
	d.logger.Info().Msg("Scheduler stopped")
}

func (d *Dispatcher) wrap(name string, job Job) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			d.logger.Warn().Str("job", name).Msg("Previous run still active, skipping trigger")
			if d.recorder != nil {
				d.recorder.JobSkipped(name)
			}
			return
		}
		defer running.Store(false)

		ctx, span := d.tracer.Start(d.baseCtx, "scheduler."+name)
		defer span.End()

		start := time.Now()
		job(ctx)
		elapsed := time.Since(start)

		if d.recorder != nil {
			d.recorder.ObserveJob(name, elapsed)
		}
		d.logger.Debug().Str("job", name).Dur("took", elapsed).Msg("Job finished")
	}
}

// intervalSchedule fires first after the initial delay, then every period.
type intervalSchedule struct {
	period  time.Duration
	first   time.Duration
	started atomic.Bool
}

func (s *intervalSchedule) Next(t time.Time) time.Time {
	if s.started.CompareAndSwap(false, true) {
		return t.Add(s.first)
	}
	return t.Add(s.period)
}

// WorkHours is a half-open [Start, End) hour range in local time.
type WorkHours struct {
	Start int
	End   int
}

// Contains reports whether t's hour in loc is inside the window.
func (w WorkHours) Contains(t time.Time, loc *time.Location) bool {
	h := t.In(loc).Hour()
	return w.Start <= h && h < w.End
}

// During wraps job so it only runs inside the work-hours window.
func (d *Dispatcher) During(w WorkHours, name string, job Job) Job {
	return func(ctx context.Context) {
		if !w.Contains(d.now(), d.loc) {
			d.logger.Debug().Str("job", name).Msg("Outside work hours, skipping")
			return
		}
		job(ctx)
	}
}

// ParseClock parses "HH:MM".
func ParseClock(raw string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q: expected HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

// cronLogger adapts zerolog to cron.Logger for the Recover wrapper.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
