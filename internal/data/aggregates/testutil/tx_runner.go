package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/data/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
)

// InjectedTxRunner wraps a real GORM transaction and can fail it at commit
// time so tests can assert that nothing from the body persisted.
type InjectedTxRunner struct {
	DB *gorm.DB

	mu            sync.Mutex
	FailCommit    error
	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failCommit := r.FailCommit
	r.mu.Unlock()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if fn != nil {
			if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
				return err
			}
		}
		return failCommit
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}
