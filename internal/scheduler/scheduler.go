// Package scheduler holds pending meeting joins ordered by fire time.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/interviewbot/internal/invite"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Scheduler is a min-heap of jobs keyed by normalized meeting link.
// At most one live job exists per key. It is safe for concurrent use.
type Scheduler struct {
	mu    sync.Mutex
	queue jobQueue
	byKey map[string]*item
	now   func() time.Time
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty Scheduler that reads the current time from now.
func NewWithClock(now func() time.Time) *Scheduler {
	return &Scheduler{
		byKey: make(map[string]*item),
		now:   now,
	}
}

// Schedule registers a join for the invite's link. A nil start time fires on
// the next poll. If a job for the same link is still live the existing job is
// returned and created is false.
func (s *Scheduler) Schedule(inv models.MeetingInvite) (models.ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := invite.NormalizeLink(inv.Link)
	if existing, ok := s.byKey[key]; ok {
		return existing.job, false
	}

	now := s.now()
	fireAt := now
	if inv.StartAt != nil {
		fireAt = *inv.StartAt
	}

	it := &item{job: models.ScheduledJob{
		ID:        uuid.New(),
		Key:       key,
		Link:      inv.Link,
		Subject:   inv.Subject,
		FireAt:    fireAt,
		CreatedAt: now,
	}}
	heap.Push(&s.queue, it)
	s.byKey[key] = it
	return it.job, true
}

// Poll removes and returns every job due at or before now, earliest first.
// A returned job is never returned again.
func (s *Scheduler) Poll(now time.Time) []models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.ScheduledJob
	for s.queue.Len() > 0 && !s.queue[0].job.FireAt.After(now) {
		it := heap.Pop(&s.queue).(*item)
		delete(s.byKey, it.job.Key)
		due = append(due, it.job)
	}
	return due
}

// Cancel removes the live job for link. It reports whether a job was removed.
func (s *Scheduler) Cancel(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := invite.NormalizeLink(link)
	it, ok := s.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, it.index)
	delete(s.byKey, key)
	return true
}

// Pending returns the live jobs in fire order.
func (s *Scheduler) Pending() []models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(jobQueue, len(s.queue))
	copy(cp, s.queue)
	out := make([]models.ScheduledJob, 0, len(cp))
	for _, it := range cp.sorted() {
		out = append(out, it.job)
	}
	return out
}

// Len returns the number of live jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
