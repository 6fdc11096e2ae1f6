package runtime

import (
	"fmt"
	"sync"

	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
)

type Handler interface {
	Type() string
	Run(ctx *Context) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Run executes the handler registered for the job's type. A missing
// handler fails the run permanently. Errors and panics fail it retryably.
func (r *Registry) Run(jc *Context) (err error) {
	h, ok := r.Get(jc.Job.JobType)
	if !ok {
		err = fmt.Errorf("no handler registered for job_type=%s", jc.Job.JobType)
		jc.FailPermanently("dispatch", err)
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			jc.Fail("panic", fmt.Errorf("panic: unexpected error"))
		}
	}()
	err = h.Run(jc)
	switch {
	case err != nil && jc.Job.Status != jobstatus.StatusFailed:
		// Handlers usually fail the run themselves; this covers the rest.
		jc.Fail("run", err)
	case err == nil && jc.Job.Status == jobstatus.StatusRunning:
		jc.Succeed("done", nil)
	}
	return err
}
