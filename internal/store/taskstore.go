// Package store holds the client-resident, normalized collection of Task
// records. The store is owned and mutated exclusively by the coordinator;
// presentation layers read snapshots and never write.
package store

import (
	"sync"

	"task-tracking-client/internal/models"
)

type taskMeta struct {
	// issued is the ticket handed to the most recent in-flight mutation;
	// committed is the ticket of the last write applied. A response whose
	// ticket is older than committed is stale and must not land.
	issued    uint64
	committed uint64
}

// TaskStore is an in-memory normalized store of tasks keyed by id, with the
// id ordering of the last authoritative list fetch and its page metadata.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
	order []string
	meta  map[string]*taskMeta

	page  int
	pages int
	total int
}

// NewTaskStore returns an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]models.Task),
		meta:  make(map[string]*taskMeta),
	}
}

// copyTask returns a value copy with its own subtask slice, so readers
// cannot reach into stored state.
func copyTask(t models.Task) models.Task {
	out := t
	out.SubTasks = make([]models.SubTask, len(t.SubTasks))
	copy(out.SubTasks, t.SubTasks)
	return out
}

// Begin reserves a mutation ticket for the given task id. Call it before
// issuing the remote request and pass the ticket to Commit or Remove when
// the response arrives. A failed request simply abandons its ticket.
func (s *TaskStore) Begin(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.metaFor(id)
	m.issued++
	return m.issued
}

func (s *TaskStore) metaFor(id string) *taskMeta {
	m, ok := s.meta[id]
	if !ok {
		m = &taskMeta{}
		s.meta[id] = m
	}
	return m
}

// Commit applies an authoritative task under the given ticket. It reports
// false, leaving the store untouched, when a newer mutation for the same
// task has already committed.
func (s *TaskStore) Commit(ticket uint64, task models.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.metaFor(task.ID)
	if ticket < m.committed {
		return false
	}
	m.committed = ticket
	if ticket > m.issued {
		m.issued = ticket
	}
	s.put(task)
	return true
}

// put upserts without locking; callers hold the write lock.
func (s *TaskStore) put(task models.Task) {
	if _, exists := s.tasks[task.ID]; !exists {
		// new tasks go to the front, matching the server's newest-first order
		s.order = append([]string{task.ID}, s.order...)
		s.total++
	}
	s.tasks[task.ID] = copyTask(task)
}

// Remove deletes a task from the store under the given ticket. Stale
// tickets are dropped the same way as in Commit.
func (s *TaskStore) Remove(ticket uint64, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.metaFor(id)
	if ticket < m.committed {
		return false
	}
	if _, exists := s.tasks[id]; exists {
		delete(s.tasks, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		if s.total > 0 {
			s.total--
		}
	}
	delete(s.meta, id)
	return true
}

// ReplaceAll swaps in a fresh authoritative task list with its pagination
// metadata, resetting all per-task tickets.
func (s *TaskStore) ReplaceAll(tasks []models.Task, page, pages, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]models.Task, len(tasks))
	s.order = make([]string, 0, len(tasks))
	s.meta = make(map[string]*taskMeta, len(tasks))
	for _, t := range tasks {
		s.tasks[t.ID] = copyTask(t)
		s.order = append(s.order, t.ID)
	}
	s.page, s.pages, s.total = page, pages, total
}

// Get returns a copy of the task with the given id.
func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return copyTask(t), true
}

// Snapshot returns copies of all tasks in list order.
func (s *TaskStore) Snapshot() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.order))
	for _, id := range s.order {
		if t, ok := s.tasks[id]; ok {
			out = append(out, copyTask(t))
		}
	}
	return out
}

// Len returns the number of cached tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// PageInfo returns the pagination metadata of the last list fetch.
func (s *TaskStore) PageInfo() (page, pages, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page, s.pages, s.total
}

// Clear empties the store.
func (s *TaskStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]models.Task)
	s.order = nil
	s.meta = make(map[string]*taskMeta)
	s.page, s.pages, s.total = 0, 0, 0
}
