package llm

import (
	"sync"
	"time"

	"github.com/Veraticus/expensesbot/internal/model"
)

// RateLimitStatus reports the daily quota state. ResetsAt is the date
// (YYYY-MM-DD) on which the counter next resets.
type RateLimitStatus struct {
	ResetsAt   string `json:"resetsAt"`
	DailyUsed  int    `json:"dailyUsed"`
	DailyLimit int    `json:"dailyLimit"`
	IsLimited  bool   `json:"isLimited"`
}

// Quota is a process-wide daily request counter. The counter resets lazily
// the first time it is touched on a new UTC date.
type Quota struct {
	now       func() time.Time
	resetDate string
	limit     int
	used      int
	mu        sync.Mutex
}

// NewQuota creates a quota allowing limit accepted calls per day.
func NewQuota(limit int) *Quota {
	return newQuotaWithClock(limit, time.Now)
}

func newQuotaWithClock(limit int, now func() time.Time) *Quota {
	if limit <= 0 {
		limit = DefaultDailyLimit(ProviderDeepSeek)
	}
	q := &Quota{
		now:   now,
		limit: limit,
	}
	q.resetDate = q.today()
	return q
}

func (q *Quota) today() string {
	return q.now().UTC().Format(model.DateLayout)
}

// rollover must be called with mu held.
func (q *Quota) rollover() {
	if today := q.today(); today != q.resetDate {
		q.resetDate = today
		q.used = 0
	}
}

// Allow reports whether another call fits in today's quota. It does not
// consume a slot.
func (q *Quota) Allow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	return q.used < q.limit
}

// Record counts one accepted call.
func (q *Quota) Record() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	q.used++
}

// Reserve takes a slot for a call about to be made, or reports false when
// today's quota is spent. The slot counts as used until release is called;
// callers release it when the call is not accepted. A release after the
// date has rolled over does nothing.
func (q *Quota) Reserve() (release func(), ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	if q.used >= q.limit {
		return nil, false
	}
	q.used++

	date := q.resetDate
	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()

			q.rollover()
			if q.resetDate == date && q.used > 0 {
				q.used--
			}
		})
	}, true
}

// Status returns a snapshot of the quota.
func (q *Quota) Status() RateLimitStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	reset, _ := time.Parse(model.DateLayout, q.resetDate)
	return RateLimitStatus{
		DailyUsed:  q.used,
		DailyLimit: q.limit,
		IsLimited:  q.used >= q.limit,
		ResetsAt:   reset.AddDate(0, 0, 1).Format(model.DateLayout),
	}
}
