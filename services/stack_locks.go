package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// StackLocks serializes deployments per stack within this process. The
// engine's own state lock still applies across processes.
type StackLocks struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewStackLocks() *StackLocks {
	return &StackLocks{sems: make(map[string]*semaphore.Weighted)}
}

// Acquire blocks until the stack is free or ctx is done. The returned func
// releases the stack.
func (l *StackLocks) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[key] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

// StackKey identifies a stack across engine projects.
func StackKey(projectName, stackName string) string {
	return projectName + "/" + stackName
}
