package database

import (
	"context"
	"errors"
	"sync"
)

// ErrNoTransaction is returned when Commit or Rollback find no transaction.
var ErrNoTransaction = errors.New("no transaction in context")

type txKey struct{}

type txInfo struct {
	tx    Transaction
	owned bool
	hooks *commitHooks
}

// commitHooks is shared by the owner and every nested Begin of one
// transaction.
type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

func (h *commitHooks) add(fn func(context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

func (h *commitHooks) take() []func(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := h.fns
	h.fns = nil
	return fns
}

// WithTx stores tx in ctx. Only the owner commits or rolls back.
func WithTx(ctx context.Context, tx Transaction, owned bool) context.Context {
	hooks := &commitHooks{}
	if outer, ok := ctx.Value(txKey{}).(txInfo); ok && outer.tx == tx && outer.hooks != nil {
		hooks = outer.hooks
	}
	return context.WithValue(ctx, txKey{}, txInfo{tx: tx, owned: owned, hooks: hooks})
}

// AfterCommit runs fn once the ambient transaction commits, or right away
// when ctx carries none. fn is dropped if the transaction rolls back.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	info, ok := ctx.Value(txKey{}).(txInfo)
	if !ok || info.tx == nil || info.hooks == nil {
		fn(ctx)
		return
	}
	info.hooks.add(fn)
}

// TxFromContext returns the ambient transaction, or nil.
func TxFromContext(ctx context.Context) Transaction {
	info, _ := ctx.Value(txKey{}).(txInfo)
	return info.tx
}

// ExecutorFromContext returns the ambient transaction if there is one,
// otherwise conn. Repositories use it so they join a unit of work
// without knowing about it.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return conn
}

// UnitOfWork implements application.UnitOfWork for any Connection.
// Nested Begin calls join the outer transaction.
type UnitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a unit of work over conn.
func NewUnitOfWork(conn Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return WithTx(ctx, tx, false), nil
	}
	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return WithTx(ctx, tx, true), nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	info, ok := ctx.Value(txKey{}).(txInfo)
	if !ok || info.tx == nil {
		return ErrNoTransaction
	}
	if !info.owned {
		return nil
	}
	if err := info.tx.Commit(ctx); err != nil {
		info.hooks.take()
		return err
	}
	for _, fn := range info.hooks.take() {
		fn(ctx)
	}
	return nil
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	info, ok := ctx.Value(txKey{}).(txInfo)
	if !ok || info.tx == nil {
		return ErrNoTransaction
	}
	if !info.owned {
		return nil
	}
	info.hooks.take()
	return info.tx.Rollback(ctx)
}
