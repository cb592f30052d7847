package workflow

import (
	"context"
	"sync"
)

type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusDone    StepStatus = "done"
	StatusFailed  StepStatus = "failed"
)

// Checkpoint is the persisted state of one step of one instance.
type Checkpoint struct {
	InstanceID string
	StepName   string
	StepIndex  int
	Status     StepStatus
	Output     []byte
	Error      string
	Notified   bool
}

// CheckpointStore persists step checkpoints. Load returns (nil, nil) when the step has
// never been attempted.
type CheckpointStore interface {
	Load(ctx context.Context, instanceID, stepName string) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	MarkNotified(ctx context.Context, instanceID, stepName string) error
	List(ctx context.Context, instanceID string) ([]Checkpoint, error)
}

// MemoryStore is a CheckpointStore kept in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Checkpoint)}
}

func (s *MemoryStore) Load(_ context.Context, instanceID, stepName string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[instanceID][stepName]
	if !ok {
		return nil, nil
	}
	cp.Output = append([]byte(nil), cp.Output...)
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps, ok := s.data[cp.InstanceID]
	if !ok {
		steps = make(map[string]Checkpoint)
		s.data[cp.InstanceID] = steps
	}
	stored := *cp
	stored.Output = append([]byte(nil), cp.Output...)
	steps[cp.StepName] = stored
	return nil
}

func (s *MemoryStore) MarkNotified(_ context.Context, instanceID, stepName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.data[instanceID][stepName]
	if !ok {
		return nil
	}
	cp.Notified = true
	s.data[instanceID][stepName] = cp
	return nil
}

func (s *MemoryStore) List(_ context.Context, instanceID string) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Checkpoint, 0, len(s.data[instanceID]))
	for _, cp := range s.data[instanceID] {
		out = append(out, cp)
	}
	return out, nil
}
