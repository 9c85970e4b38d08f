// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

type task struct {
	id        int64
	execute   time.Time
	callback  func()
	cancelled bool
	index     int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].execute.Before(q[j].execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	t := x.(*task)
	t.index = n
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	t.index = -1
	*q = old[0 : n-1]
	return t
}

// Manager schedules one-shot deadlines. Cancel guarantees the callback
// will not run afterwards: the cancelled flag is checked under the same
// lock that dispatch takes before firing.
type Manager struct {
	queue   taskQueue
	tasks   map[int64]*task
	mutex   sync.Mutex
	nextID  int64
	closed  chan struct{}
	closeMu sync.Once
}

const tickInterval = 50 * time.Millisecond

func NewManager() *Manager {
	m := &Manager{
		queue:  make(taskQueue, 0),
		tasks:  make(map[int64]*task),
		nextID: 1,
		closed: make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.process()
	return m
}

// Schedule arms a deadline and returns its cancellation handle.
func (m *Manager) Schedule(delay time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t := &task{
		id:       m.nextID,
		execute:  time.Now().Add(delay),
		callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, t)
	m.tasks[t.id] = t
	return t.id
}

// Cancel disarms a pending deadline. It returns false when the deadline
// already fired or never existed.
func (m *Manager) Cancel(id int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, exists := m.tasks[id]
	if !exists || t.cancelled {
		return false
	}
	t.cancelled = true
	delete(m.tasks, id)
	if t.index >= 0 {
		heap.Remove(&m.queue, t.index)
	}
	return true
}

// Close stops the dispatch loop.
func (m *Manager) Close() {
	m.closeMu.Do(func() { close(m.closed) })
}

func (m *Manager) process() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.fireDue()
		case <-m.closed:
			return
		}
	}
}

func (m *Manager) fireDue() {
	now := time.Now()
	var due []*task

	m.mutex.Lock()
	for m.queue.Len() > 0 {
		t := m.queue[0]
		if t.execute.After(now) {
			break
		}
		heap.Pop(&m.queue)
		delete(m.tasks, t.id)
		if !t.cancelled {
			due = append(due, t)
		}
	}
	m.mutex.Unlock()

	for _, t := range due {
		go t.callback()
	}
}
