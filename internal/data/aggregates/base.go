package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/observability"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// TxRunner is the transaction boundary shared by aggregate writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// txAttempts bounds how often a write is replayed after a lock timeout or
// serialization failure.
const txAttempts = 3

type gormTxRunner struct {
	db      *gorm.DB
	backoff time.Duration
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db, backoff: 25 * time.Millisecond}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || domainagg.CodeOf(MapError("aggregate.tx", err)) != domainagg.CodeRetryable {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}
	return err
}

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	return d
}

// executeWrite runs fn in one transaction, maps its error onto the aggregate
// taxonomy and reports the outcome to hooks.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := observability.StartSpan(ctx, op)
	mapped := MapError(op, deps.Runner.InTx(ctx, fn))
	defer func() { observability.EndSpan(span, mapped) }()

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		switch domainagg.CodeOf(mapped) {
		case domainagg.CodeConflict:
			deps.Hooks.IncConflict(op)
		case domainagg.CodeRetryable:
			deps.Hooks.IncRetry(op)
		case domainagg.CodeInternal:
			if deps.Log != nil {
				deps.Log.Error("aggregate write failed", "op", op, "error", mapped)
			}
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeOf(MapError("aggregate.status", err))
	}
	if code == "" {
		return "failure"
	}
	return string(code)
}
