package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrEmailTaken is returned when an upsert would give a respondent an email
// address that already belongs to another respondent.
var ErrEmailTaken = errors.New("email already registered to another respondent")

// Querier is the subset of *sql.DB and *sql.Tx the stores use, so the same
// store code runs inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos groups the stores bound to one connection or transaction.
type Repos struct {
	Respondents *RespondentStore
	Catalog     *CatalogStore
	Responses   *ResponseStore
}

func NewRepos(q Querier) *Repos {
	return &Repos{
		Respondents: NewRespondentStore(q),
		Catalog:     NewCatalogStore(q),
		Responses:   NewResponseStore(q),
	}
}

// Store owns the database handle. Its embedded Repos run outside any
// transaction; InTx hands fn a Repos bound to a fresh transaction.
type Store struct {
	db *sql.DB
	*Repos
}

func New(db *sql.DB) *Store {
	return &Store{db: db, Repos: NewRepos(db)}
}

// InTx runs fn in a transaction. The transaction commits when fn returns nil
// and rolls back otherwise. fn must only use the Repos it is given: the
// database allows a single connection, so touching Store from inside fn
// blocks.
func (s *Store) InTx(ctx context.Context, fn func(r *Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(NewRepos(tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (also failed to roll back: %v)", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// column (given as "table.column").
func isUniqueViolation(err error, column string) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) || serr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	msg := serr.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func closeRows(rows *sql.Rows, errp *error) {
	if cerr := rows.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("failed to close rows: %w", cerr)
	}
}
