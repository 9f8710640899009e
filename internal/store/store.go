package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Store is the generic data-access layer. Tables are addressed by name and
// rows travel as map[string]any so the agent dispatcher can operate on any
// entity without a per-table query builder.
type Store struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Cond is a single WHERE condition. Op is one of =, !=, <, <=, >, >=, like.
type Cond struct {
	Field string
	Op    string
	Value any
}

func Eq(field string, value any) Cond   { return Cond{Field: field, Op: "=", Value: value} }
func Like(field, fragment string) Cond  { return Cond{Field: field, Op: "like", Value: fragment} }
func Gte(field string, value any) Cond  { return Cond{Field: field, Op: ">=", Value: value} }
func Lte(field string, value any) Cond  { return Cond{Field: field, Op: "<=", Value: value} }
func IsNull(field string) Cond          { return Cond{Field: field, Op: "isnull"} }
func NotNull(field string) Cond         { return Cond{Field: field, Op: "notnull"} }

// Query describes a filtered select. Conds are AND-ed; MatchAny is a single
// OR group (used for partial-text search across several columns).
type Query struct {
	Table    string
	Conds    []Cond
	MatchAny []Cond
	OrderBy  string
	Desc     bool
	Limit    int
}

func renderCond(c Cond, args *[]any) (string, error) {
	switch c.Op {
	case "=", "!=", "<", "<=", ">", ">=":
		*args = append(*args, c.Value)
		return c.Field + c.Op + "?", nil
	case "like":
		*args = append(*args, "%"+fmt.Sprint(c.Value)+"%")
		return c.Field + " LIKE ?", nil
	case "isnull":
		return c.Field + " IS NULL", nil
	case "notnull":
		return c.Field + " IS NOT NULL", nil
	default:
		return "", fmt.Errorf("unsupported condition op %q", c.Op)
	}
}

func buildWhere(conds, matchAny []Cond, args *[]any) (string, error) {
	var clauses []string
	for _, c := range conds {
		clause, err := renderCond(c, args)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	if len(matchAny) > 0 {
		var ors []string
		for _, c := range matchAny {
			clause, err := renderCond(c, args)
			if err != nil {
				return "", err
			}
			ors = append(ors, clause)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

// Select returns all rows matching the query as generic maps.
func (s Store) Select(ctx context.Context, q Query) ([]map[string]any, error) {
	var args []any
	where, err := buildWhere(q.Conds, q.MatchAny, &args)
	if err != nil {
		return nil, err
	}
	sqlText := `SELECT * FROM ` + q.Table + where
	if q.OrderBy != "" {
		sqlText += ` ORDER BY ` + q.OrderBy
		if q.Desc {
			sqlText += ` DESC`
		}
		// Stable tie-break so "first match" is deterministic.
		sqlText += `, id`
		if q.Desc {
			sqlText += ` DESC`
		}
	}
	if q.Limit > 0 {
		sqlText += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGeneric(rows)
}

// SelectOne returns the first matching row or ErrNotFound.
func (s Store) SelectOne(ctx context.Context, q Query) (map[string]any, error) {
	q.Limit = 1
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Count returns the number of rows matching the query.
func (s Store) Count(ctx context.Context, q Query) (int, error) {
	var args []any
	where, err := buildWhere(q.Conds, q.MatchAny, &args)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+q.Table+where, args...).Scan(&n)
	return n, err
}

// Sum returns the sum of a numeric column over matching rows.
func (s Store) Sum(ctx context.Context, q Query, field string) (float64, error) {
	var args []any
	where, err := buildWhere(q.Conds, q.MatchAny, &args)
	if err != nil {
		return 0, err
	}
	var total sql.NullFloat64
	err = s.DB.QueryRowContext(ctx, `SELECT SUM(`+field+`) FROM `+q.Table+where, args...).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// Insert adds one row. Column order is sorted for deterministic SQL.
func (s Store) Insert(ctx context.Context, table string, row map[string]any) error {
	return insertRow(ctx, s.DB, table, row)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, ex execer, table string, row map[string]any) error {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	args := make([]any, 0, len(cols))
	marks := make([]string, 0, len(cols))
	for _, c := range cols {
		args = append(args, row[c])
		marks = append(marks, "?")
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO `+table+`(`+strings.Join(cols, ",")+`) VALUES (`+strings.Join(marks, ",")+`)`,
		args...)
	return err
}

// Update sets columns on matching rows and returns the affected count.
func (s Store) Update(ctx context.Context, table string, set map[string]any, conds []Cond) (int64, error) {
	return updateRows(ctx, s.DB, table, set, conds)
}

func updateRows(ctx context.Context, ex execer, table string, set map[string]any, conds []Cond) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	var fields []string
	var args []any
	for _, c := range cols {
		fields = append(fields, c+"=?")
		args = append(args, set[c])
	}
	where, err := buildWhere(conds, nil, &args)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, `UPDATE `+table+` SET `+strings.Join(fields, ",")+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes matching rows and returns the affected count.
func (s Store) Delete(ctx context.Context, table string, conds []Cond) (int64, error) {
	var args []any
	where, err := buildWhere(conds, nil, &args)
	if err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM `+table+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanGeneric(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			switch v := vals[i].(type) {
			case []byte:
				row[c] = string(v)
			default:
				row[c] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
