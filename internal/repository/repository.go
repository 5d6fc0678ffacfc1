package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/fx-ledger/internal/models"
	"github.com/google/uuid"
)

// Repository is the append-only in-memory operation log.
// Readers never observe a partially appended operation.
type Repository struct {
	mu  sync.RWMutex
	ops []models.Operation
	seq int64
}

// NewRepository initializes an empty repository
func NewRepository() *Repository {
	return &Repository{}
}

// Append stores a new operation, assigning its ID, sequence number and creation time
func (r *Repository) Append(op *models.Operation) error {
	if op == nil {
		return fmt.Errorf("operation is nil")
	}
	if op.Account == "" {
		return fmt.Errorf("operation has no account")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	op.ID = uuid.NewString()
	op.Seq = r.seq
	op.CreatedAt = time.Now().UTC()
	r.ops = append(r.ops, *op)
	return nil
}

// FindByAccount returns a copy of every operation on account, in append order
func (r *Repository) FindByAccount(account string) []models.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Operation
	for _, op := range r.ops {
		if op.Account == account {
			out = append(out, op)
		}
	}
	return out
}

// List returns a copy of the whole log
func (r *Repository) List() []models.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Operation, len(r.ops))
	copy(out, r.ops)
	return out
}

// Len returns the number of stored operations
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
