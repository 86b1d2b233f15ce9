// Package pgxcasbin keeps casbin rules in a postgres table and tells the
// enforcers of other replicas to reload when a rule changes.
package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

// ruleWidth is the number of value columns (v0..v5) in the rules table.
const ruleWidth = 6

var (
	ErrRuleTooLong  = errors.New("pgxcasbin: rule has more than 6 values")
	ErrFilterTooBig = errors.New("pgxcasbin: filter reaches past v5")
	ErrEmptyPType   = errors.New("pgxcasbin: ptype is required")
)

var (
	_ persist.BatchAdapter        = (*Adapter)(nil)
	_ persist.ContextBatchAdapter = (*Adapter)(nil)
)

// DB is the slice of *pgxpool.Pool the adapter needs.
type DB interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Adapter reads and writes rules as (ptype, v0..v5) rows; unused values are ''.
type Adapter struct {
	db    DB
	table string

	insertSQL string
	deleteSQL string
	selectSQL string
}

type Option func(*Adapter)

// WithTableName sets the rules table; the default is "casbin_rules".
func WithTableName(name string) Option {
	return func(a *Adapter) { a.table = lo.SnakeCase(name) }
}

func NewAdapter(ctx context.Context, db DB, opts ...Option) (*Adapter, error) {
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pgxcasbin: ping: %w", err)
	}

	a := &Adapter{db: db, table: "casbin_rules"}
	for _, opt := range opts {
		opt(a)
	}

	table := pgx.Identifier{a.table}.Sanitize()
	cols := strings.Join(valueColumns(), ", ")
	a.insertSQL = "INSERT INTO " + table + " (ptype, " + cols + ") VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT DO NOTHING"
	a.deleteSQL = "DELETE FROM " + table + " WHERE ptype = $1 AND " + strings.Join(lo.Map(valueColumns(), func(c string, i int) string {
		return c + " = $" + strconv.Itoa(i+2)
	}), " AND ")
	a.selectSQL = "SELECT ptype, " + cols + " FROM " + table + " ORDER BY id"

	return a, nil
}

func valueColumns() []string {
	return lo.Times(ruleWidth, func(i int) string { return "v" + strconv.Itoa(i) })
}

// row pads rule to the table width and prefixes ptype, ready for insertSQL or deleteSQL.
func row(ptype string, rule []string) ([]any, error) {
	if len(rule) > ruleWidth {
		return nil, fmt.Errorf("%w: %v", ErrRuleTooLong, rule)
	}
	args := make([]any, 1+ruleWidth)
	args[0] = ptype
	for i := range ruleWidth {
		args[i+1] = ""
		if i < len(rule) {
			args[i+1] = rule[i]
		}
	}
	return args, nil
}

// line turns a stored row back into a casbin policy line, dropping trailing blanks.
func line(ptype string, values []string) []string {
	end := len(values)
	for end > 0 && values[end-1] == "" {
		end--
	}
	return append([]string{ptype}, values[:end]...)
}

// filterWhere builds the predicate for RemoveFilteredPolicy. Empty values match anything.
func filterWhere(ptype string, fieldIndex int, values []string) (string, []any, error) {
	if ptype == "" {
		return "", nil, ErrEmptyPType
	}
	if fieldIndex < 0 || fieldIndex+len(values) > ruleWidth {
		return "", nil, fmt.Errorf("%w: index %d with %d values", ErrFilterTooBig, fieldIndex, len(values))
	}

	where := "ptype = $1"
	args := []any{ptype}
	for i, v := range values {
		if v == "" {
			continue
		}
		args = append(args, v)
		where += " AND v" + strconv.Itoa(fieldIndex+i) + " = $" + strconv.Itoa(len(args))
	}
	return where, args, nil
}

func (a *Adapter) LoadPolicyCtx(ctx context.Context, m model.Model) error {
	rows, err := a.db.Query(ctx, a.selectSQL)
	if err != nil {
		return fmt.Errorf("pgxcasbin: load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ptype string
		values := make([]string, ruleWidth)
		if err := rows.Scan(&ptype, &values[0], &values[1], &values[2], &values[3], &values[4], &values[5]); err != nil {
			return fmt.Errorf("pgxcasbin: scan: %w", err)
		}
		if err := persist.LoadPolicyArray(line(ptype, values), m); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SavePolicyCtx replaces the whole table with the rules in m.
func (a *Adapter) SavePolicyCtx(ctx context.Context, m model.Model) error {
	return a.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{a.table}.Sanitize()); err != nil {
			return fmt.Errorf("pgxcasbin: clear: %w", err)
		}
		for _, sec := range []string{"p", "g"} {
			for ptype, ast := range m[sec] {
				if err := a.execAll(ctx, tx, a.insertSQL, ptype, ast.Policy); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (a *Adapter) AddPolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	return a.execAll(ctx, a.db, a.insertSQL, ptype, [][]string{rule})
}

func (a *Adapter) RemovePolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	return a.execAll(ctx, a.db, a.deleteSQL, ptype, [][]string{rule})
}

func (a *Adapter) AddPoliciesCtx(ctx context.Context, _ string, ptype string, rules [][]string) error {
	return a.inTx(ctx, func(tx pgx.Tx) error {
		return a.execAll(ctx, tx, a.insertSQL, ptype, rules)
	})
}

func (a *Adapter) RemovePoliciesCtx(ctx context.Context, _ string, ptype string, rules [][]string) error {
	return a.inTx(ctx, func(tx pgx.Tx) error {
		return a.execAll(ctx, tx, a.deleteSQL, ptype, rules)
	})
}

func (a *Adapter) RemoveFilteredPolicyCtx(ctx context.Context, _ string, ptype string, fieldIndex int, values ...string) error {
	where, args, err := filterWhere(ptype, fieldIndex, values)
	if err != nil {
		return err
	}
	if _, err := a.db.Exec(ctx, "DELETE FROM "+pgx.Identifier{a.table}.Sanitize()+" WHERE "+where, args...); err != nil {
		return fmt.Errorf("pgxcasbin: remove filtered: %w", err)
	}
	return nil
}

func (a *Adapter) execAll(ctx context.Context, db execer, sql, ptype string, rules [][]string) error {
	for _, rule := range rules {
		args, err := row(ptype, rule)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("pgxcasbin: %s %v: %w", ptype, rule, err)
		}
	}
	return nil
}

func (a *Adapter) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgxcasbin: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (a *Adapter) LoadPolicy(m model.Model) error { return a.LoadPolicyCtx(context.Background(), m) }
func (a *Adapter) SavePolicy(m model.Model) error { return a.SavePolicyCtx(context.Background(), m) }

func (a *Adapter) AddPolicy(sec, ptype string, rule []string) error {
	return a.AddPolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) RemovePolicy(sec, ptype string, rule []string) error {
	return a.RemovePolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) AddPolicies(sec, ptype string, rules [][]string) error {
	return a.AddPoliciesCtx(context.Background(), sec, ptype, rules)
}

func (a *Adapter) RemovePolicies(sec, ptype string, rules [][]string) error {
	return a.RemovePoliciesCtx(context.Background(), sec, ptype, rules)
}

func (a *Adapter) RemoveFilteredPolicy(sec, ptype string, fieldIndex int, values ...string) error {
	return a.RemoveFilteredPolicyCtx(context.Background(), sec, ptype, fieldIndex, values...)
}
