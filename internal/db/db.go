package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemamend/schemamend/internal/config"
)

// ErrNotConnected is returned when an operation is attempted without a live
// database handle. It is never retried internally.
var ErrNotConnected = errors.New("not connected to database")

// Execer runs a single SQL statement.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Conn is the database surface the reconciliation engine needs: single
// statements, catalog queries, and multi-statement transactions. It is
// satisfied by *Pool and by test doubles.
type Conn interface {
	Execer
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	InTx(ctx context.Context, fn func(Execer) error) error
}

// Pool wraps a pgx connection pool and applies a per-statement timeout.
// Long-running ALTER statements that exceed the timeout fail and roll back;
// the caller may retry later.
type Pool struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// Connect opens a pool against the configured PostgreSQL database and pings it.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password,
	)
	if cfg.SSL {
		connStr += " sslmode=require"
	} else {
		connStr += " sslmode=disable"
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	return &Pool{
		pool:    pool,
		timeout: time.Duration(cfg.StatementTimeoutSeconds) * time.Second,
	}, nil
}

func (p *Pool) statementCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return ctx, func() {}
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if p.pool == nil {
		return pgconn.CommandTag{}, ErrNotConnected
	}
	sctx, cancel := p.statementCtx(ctx)
	defer cancel()
	return p.pool.Exec(sctx, sql, args...)
}

func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}
	return p.pool.Query(ctx, sql, args...)
}

// InTx runs fn inside a single transaction. Any error from fn rolls the
// whole transaction back and is returned unchanged.
func (p *Pool) InTx(ctx context.Context, fn func(Execer) error) error {
	if p.pool == nil {
		return ErrNotConnected
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(txExecer{tx: tx, timeout: p.timeout}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (p *Pool) Close() {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

type txExecer struct {
	tx      pgx.Tx
	timeout time.Duration
}

func (t txExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.timeout > 0 {
		sctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		return t.tx.Exec(sctx, sql, args...)
	}
	return t.tx.Exec(ctx, sql, args...)
}

// QuoteIdent quotes a SQL identifier for safe inclusion in generated DDL.
// Every identifier in engine-generated SQL passes through here.
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// typeSpecPattern allow-lists the shape of an expected-schema type spec:
// a leading alphabetic token, optional spaces, optional (n) or (n,m).
var typeSpecPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\([0-9]+(,[0-9]+)?\))?$`)

// ValidTypeSpec reports whether a declared type spec such as "DECIMAL(10,2)"
// is safe to place in DDL. Anything outside the allow-list is rejected
// before it can reach a statement.
func ValidTypeSpec(spec string) bool {
	return typeSpecPattern.MatchString(spec)
}

// compile-time interface check
var _ Conn = (*Pool)(nil)
