package upload

import "sync"

// Registry maps task ids to live tasks. It is owned by a Manager and has no
// global instance; tasks are added before their request reaches the engine
// so that an engine callback can always be routed.
type Registry struct {
	*sync.RWMutex
	tasks map[string]*Task
}

func NewRegistry() *Registry {
	return &Registry{
		RWMutex: new(sync.RWMutex),
		tasks:   make(map[string]*Task),
	}
}

func (r *Registry) Add(t *Task) {
	r.Lock()
	r.tasks[t.ID()] = t
	r.Unlock()
}

func (r *Registry) Lookup(id string) (*Task, bool) {
	r.RLock()
	defer r.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

func (r *Registry) Remove(id string) {
	r.Lock()
	delete(r.tasks, id)
	r.Unlock()
}

func (r *Registry) List() []*Task {
	r.RLock()
	defer r.RUnlock()
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	return tasks
}

func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.tasks)
}
