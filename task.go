package conductor

import (
	"context"
	"time"
)

// Task is a recurring job executed by the session loop. Fire is never
// called concurrently with notifications dispatch or other tasks. Task is
// re-armed after every firing, returned error stops the session.
type Task interface {
	Name() string
	Interval() time.Duration
	Fire(ctx context.Context) error
}

// schedule keeps the next due time of every task and one timer armed for
// the earliest of them.
type schedule struct {
	tasks []Task
	due   []time.Time
	timer *time.Timer
}

func newSchedule(now time.Time, tasks []Task) *schedule {
	s := &schedule{
		tasks: tasks,
		due:   make([]time.Time, len(tasks)),
	}
	for i := range tasks {
		s.due[i] = now.Add(tasks[i].Interval())
	}
	if len(tasks) > 0 {
		s.timer = time.NewTimer(s.wait(now))
	}
	return s
}

// C returns timer channel. Nil channel is returned if there are no tasks.
func (s *schedule) C() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.C
}

// fire executes all due tasks and re-arms them relative to the time
// when they finished.
func (s *schedule) fire(ctx context.Context, now time.Time) error {
	for i, t := range s.tasks {
		if s.due[i].After(now) {
			continue
		}
		if err := t.Fire(ctx); err != nil {
			return err
		}
		s.due[i] = time.Now().Add(t.Interval())
	}
	s.timer.Reset(s.wait(time.Now()))
	return nil
}

func (s *schedule) wait(now time.Time) time.Duration {
	next := s.due[0]
	for _, d := range s.due[1:] {
		if d.Before(next) {
			next = d
		}
	}
	if d := next.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (s *schedule) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
}
