package telegram

import "sync"

// userQueues runs the work of each user on its own goroutine, one task at
// a time and in push order. A user's goroutine exits when its queue drains.
type userQueues struct {
	queues map[int64][]func()
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func newUserQueues() *userQueues {
	return &userQueues{queues: make(map[int64][]func())}
}

// push never blocks.
func (q *userQueues) push(user int64, task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, running := q.queues[user]
	q.queues[user] = append(pending, task)
	if running {
		return
	}
	q.wg.Add(1)
	go q.drain(user)
}

func (q *userQueues) drain(user int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		pending := q.queues[user]
		if len(pending) == 0 {
			delete(q.queues, user)
			q.mu.Unlock()
			return
		}
		task := pending[0]
		q.queues[user] = pending[1:]
		q.mu.Unlock()

		task()
	}
}

// wait blocks until every queued task has run.
func (q *userQueues) wait() {
	q.wg.Wait()
}
