package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		url      string
		expected Driver
	}{
		{"", DriverSQLite},
		{"postgres://todo@localhost/todo", DriverPostgres},
		{"postgresql://todo@localhost/todo", DriverPostgres},
		{"sqlite:///tmp/todo.db", DriverSQLite},
		{"file:/tmp/todo", DriverSQLite},
		{"/var/lib/todo/data.sqlite3", DriverSQLite},
		{"host=localhost dbname=todo", DriverPostgres},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectDriver(tt.url))
		})
	}
}

func TestDriver_IsValid(t *testing.T) {
	assert.True(t, DriverPostgres.IsValid())
	assert.True(t, DriverSQLite.IsValid())
	assert.False(t, Driver("mysql").IsValid())
}

func TestRebind(t *testing.T) {
	q := "UPDATE tasks SET title = ? WHERE id = ? AND version = ?"

	assert.Equal(t, q, Rebind(DriverSQLite, q))
	assert.Equal(t, "UPDATE tasks SET title = $1 WHERE id = $2 AND version = $3", Rebind(DriverPostgres, q))
}

func TestNewConnection_UnregisteredDriver(t *testing.T) {
	_, err := NewConnection(context.Background(), Config{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

type mockTx struct {
	mock.Mock
	Executor
}

func (m *mockTx) Commit(ctx context.Context) error   { return m.Called(ctx).Error(0) }
func (m *mockTx) Rollback(ctx context.Context) error { return m.Called(ctx).Error(0) }

type mockConn struct {
	mock.Mock
	Executor
}

func (m *mockConn) BeginTx(ctx context.Context) (Transaction, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(Transaction)
	return tx, args.Error(1)
}

func (m *mockConn) Close() error                   { return nil }
func (m *mockConn) Ping(ctx context.Context) error { return nil }
func (m *mockConn) Driver() Driver                 { return DriverSQLite }

func TestUnitOfWork(t *testing.T) {
	ctx := context.Background()

	t.Run("owner commits", func(t *testing.T) {
		tx := new(mockTx)
		conn := new(mockConn)
		conn.On("BeginTx", ctx).Return(tx, nil)
		uow := NewUnitOfWork(conn)

		txCtx, err := uow.Begin(ctx)
		require.NoError(t, err)
		assert.Same(t, tx, TxFromContext(txCtx))
		assert.Same(t, tx, ExecutorFromContext(txCtx, conn))

		tx.On("Commit", txCtx).Return(nil)
		require.NoError(t, uow.Commit(txCtx))
		tx.AssertExpectations(t)
	})

	t.Run("nested begin joins and leaves finishing to the owner", func(t *testing.T) {
		tx := new(mockTx)
		conn := new(mockConn)
		conn.On("BeginTx", ctx).Return(tx, nil).Once()
		uow := NewUnitOfWork(conn)

		outer, err := uow.Begin(ctx)
		require.NoError(t, err)
		inner, err := uow.Begin(outer)
		require.NoError(t, err)

		require.NoError(t, uow.Commit(inner))
		require.NoError(t, uow.Rollback(inner))
		tx.AssertNotCalled(t, "Commit", mock.Anything)
		tx.AssertNotCalled(t, "Rollback", mock.Anything)
		conn.AssertNumberOfCalls(t, "BeginTx", 1)
	})

	t.Run("begin failure", func(t *testing.T) {
		conn := new(mockConn)
		conn.On("BeginTx", ctx).Return(nil, errors.New("pool exhausted"))

		_, err := NewUnitOfWork(conn).Begin(ctx)
		assert.EqualError(t, err, "pool exhausted")
	})

	t.Run("commit without transaction", func(t *testing.T) {
		uow := NewUnitOfWork(new(mockConn))
		assert.ErrorIs(t, uow.Commit(ctx), ErrNoTransaction)
		assert.ErrorIs(t, uow.Rollback(ctx), ErrNoTransaction)
	})

	t.Run("executor falls back to connection", func(t *testing.T) {
		conn := new(mockConn)
		assert.Same(t, conn, ExecutorFromContext(ctx, conn))
	})
}

func TestAfterCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("runs immediately without a transaction", func(t *testing.T) {
		ran := false
		AfterCommit(ctx, func(context.Context) { ran = true })
		assert.True(t, ran)
	})

	t.Run("waits for the owner to commit", func(t *testing.T) {
		tx := new(mockTx)
		conn := new(mockConn)
		conn.On("BeginTx", ctx).Return(tx, nil)
		tx.On("Commit", mock.Anything).Return(nil)
		uow := NewUnitOfWork(conn)

		outer, err := uow.Begin(ctx)
		require.NoError(t, err)
		inner, err := uow.Begin(outer)
		require.NoError(t, err)

		var ran []string
		AfterCommit(outer, func(context.Context) { ran = append(ran, "outer") })
		AfterCommit(inner, func(context.Context) { ran = append(ran, "inner") })

		require.NoError(t, uow.Commit(inner))
		assert.Empty(t, ran, "a nested commit does not finish the transaction")

		require.NoError(t, uow.Commit(outer))
		assert.Equal(t, []string{"outer", "inner"}, ran)
	})

	t.Run("dropped on rollback", func(t *testing.T) {
		tx := new(mockTx)
		conn := new(mockConn)
		conn.On("BeginTx", ctx).Return(tx, nil)
		tx.On("Rollback", mock.Anything).Return(nil)
		uow := NewUnitOfWork(conn)

		txCtx, err := uow.Begin(ctx)
		require.NoError(t, err)
		ran := false
		AfterCommit(txCtx, func(context.Context) { ran = true })

		require.NoError(t, uow.Rollback(txCtx))
		assert.False(t, ran)
	})

	t.Run("dropped when commit fails", func(t *testing.T) {
		tx := new(mockTx)
		conn := new(mockConn)
		conn.On("BeginTx", ctx).Return(tx, nil)
		tx.On("Commit", mock.Anything).Return(errors.New("database is locked"))
		uow := NewUnitOfWork(conn)

		txCtx, err := uow.Begin(ctx)
		require.NoError(t, err)
		ran := false
		AfterCommit(txCtx, func(context.Context) { ran = true })

		assert.EqualError(t, uow.Commit(txCtx), "database is locked")
		assert.False(t, ran)
	})
}
