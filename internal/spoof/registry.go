package spoof

import "sync"

// Registry holds at most one task per username.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Replace stores task for username, cancelling any task it displaces.
// It reports whether a task was displaced.
func (r *Registry) Replace(username string, task *Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.tasks[username]
	if ok {
		old.Cancel()
	}
	r.tasks[username] = task
	return ok
}

// Remove cancels and drops the task for username. It reports whether
// one existed.
func (r *Registry) Remove(username string) bool {
	r.mu.Lock()
	task, ok := r.tasks[username]
	delete(r.tasks, username)
	r.mu.Unlock()

	if ok {
		task.Cancel()
	}
	return ok
}

// Get returns the task for username, or nil.
func (r *Registry) Get(username string) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[username]
}

// Armed reports whether username has a task.
func (r *Registry) Armed(username string) bool {
	return r.Get(username) != nil
}

// Len returns the number of stored tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// CancelAll cancels every task, empties the registry and returns the
// cancelled tasks so the caller can wait for them.
func (r *Registry) CancelAll() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks := make([]*Task, 0, len(r.tasks))
	for name, task := range r.tasks {
		task.Cancel()
		tasks = append(tasks, task)
		delete(r.tasks, name)
	}
	return tasks
}
