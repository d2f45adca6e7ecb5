package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// SQLConnector implements Connector over database/sql with PostgreSQL
// placeholder syntax.
type SQLConnector struct {
	db *sql.DB
}

// NewSQLConnector wraps an open database handle.
func NewSQLConnector(db *sql.DB) *SQLConnector {
	return &SQLConnector{db: db}
}

// DB returns the underlying handle.
func (c *SQLConnector) DB() *sql.DB { return c.db }

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(s string) error {
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}

// Find returns the rows matching criteria. Soft-deleted rows are excluded
// unless params.IncludeDeleted is set. An empty fields list selects all
// columns.
func (c *SQLConnector) Find(ctx context.Context, table string, criteria map[string]any, fields []string, params QueryParams) ([]map[string]any, error) {
	if err := validIdentifier(table); err != nil {
		return nil, err
	}
	columns := "*"
	if len(fields) > 0 {
		for _, f := range fields {
			if err := validIdentifier(f); err != nil {
				return nil, err
			}
		}
		columns = strings.Join(fields, ", ")
	}

	clauses, args, err := buildWhere(criteria, 1)
	if err != nil {
		return nil, err
	}
	if !params.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", columns, table)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if params.OrderBy != "" {
		column, direction := params.OrderBy, "ASC"
		if strings.HasPrefix(column, "-") {
			column, direction = column[1:], "DESC"
		}
		if err := validIdentifier(column); err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" ORDER BY %s %s", column, direction)
	}
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
	}
	if params.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", params.Offset)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ConvertError(err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Create inserts the record's columns as a new row.
func (c *SQLConnector) Create(ctx context.Context, rec Record) error {
	if err := validIdentifier(rec.Table()); err != nil {
		return err
	}
	columns := sortedColumns(rec.Columns())
	if len(columns) == 0 {
		return fmt.Errorf("record has no columns to insert")
	}
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	values := rec.Columns()
	for i, col := range columns {
		if err := validIdentifier(col); err != nil {
			return err
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[col]
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		rec.Table(),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return ConvertError(err)
	}
	return nil
}

// Update writes every non-key column back to the row identified by the
// record's primary key.
func (c *SQLConnector) Update(ctx context.Context, rec Record) error {
	if err := validIdentifier(rec.Table()); err != nil {
		return err
	}
	pkColumn, pkValue := rec.PrimaryKey()
	values := rec.Columns()

	var assignments []string
	var args []any
	counter := 1
	for _, col := range sortedColumns(values) {
		if col == pkColumn {
			continue
		}
		if err := validIdentifier(col); err != nil {
			return err
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, counter))
		args = append(args, values[col])
		counter++
	}
	if len(assignments) == 0 {
		return fmt.Errorf("record has no columns to update")
	}
	args = append(args, pkValue)
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		rec.Table(),
		strings.Join(assignments, ", "),
		pkColumn,
		counter,
	)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ConvertError(err)
	}
	return requireRows(result)
}

// SoftDelete stamps the row as deleted and mirrors the stamp onto the
// record. A row that is missing or already soft-deleted is ErrNotFound.
func (c *SQLConnector) SoftDelete(ctx context.Context, rec Record, stamp AuditStamp) error {
	if err := validIdentifier(rec.Table()); err != nil {
		return err
	}
	pkColumn, pkValue := rec.PrimaryKey()
	query := fmt.Sprintf(
		"UPDATE %s SET deleted_at = $1, deleted_by = $2 WHERE %s = $3 AND deleted_at IS NULL",
		rec.Table(),
		pkColumn,
	)
	result, err := c.db.ExecContext(ctx, query, stamp.At, stamp.By, pkValue)
	if err != nil {
		return ConvertError(err)
	}
	if err := requireRows(result); err != nil {
		return err
	}
	rec.SetColumn("deleted_at", stamp.At)
	rec.SetColumn("deleted_by", stamp.By)
	return nil
}

// HardDelete removes the row entirely.
func (c *SQLConnector) HardDelete(ctx context.Context, rec Record) error {
	if err := validIdentifier(rec.Table()); err != nil {
		return err
	}
	pkColumn, pkValue := rec.PrimaryKey()
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", rec.Table(), pkColumn)
	result, err := c.db.ExecContext(ctx, query, pkValue)
	if err != nil {
		return ConvertError(err)
	}
	return requireRows(result)
}

// RecordExists reports whether any row matches criteria.
func (c *SQLConnector) RecordExists(ctx context.Context, table string, criteria map[string]any) (bool, error) {
	if err := validIdentifier(table); err != nil {
		return false, err
	}
	clauses, args, err := buildWhere(criteria, 1)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s", table)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ")"
	var exists bool
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, ConvertError(err)
	}
	return exists, nil
}

// SoftDeleteWhere bulk-stamps every active row matching criteria.
func (c *SQLConnector) SoftDeleteWhere(ctx context.Context, table string, criteria map[string]any, stamp AuditStamp) (int64, error) {
	if err := validIdentifier(table); err != nil {
		return 0, err
	}
	args := []any{stamp.At, stamp.By}
	clauses, whereArgs, err := buildWhere(criteria, 3)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)
	clauses = append(clauses, "deleted_at IS NULL")
	query := fmt.Sprintf(
		"UPDATE %s SET deleted_at = $1, deleted_by = $2 WHERE %s",
		table,
		strings.Join(clauses, " AND "),
	)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, ConvertError(err)
	}
	return result.RowsAffected()
}

// buildWhere renders criteria into AND-joined clauses. Keys are sorted so
// generated SQL is deterministic.
func buildWhere(criteria map[string]any, argIndex int) ([]string, []any, error) {
	var clauses []string
	var args []any
	for _, column := range sortedColumns(criteria) {
		if err := validIdentifier(column); err != nil {
			return nil, nil, err
		}
		switch value := criteria[column].(type) {
		case nil:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", column))
		case NotNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", column))
		case []string, []int, []int64, []float64, []any:
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", column, argIndex))
			args = append(args, pq.Array(value))
			argIndex++
		default:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, argIndex))
			args = append(args, value)
			argIndex++
		}
	}
	return clauses, args, nil
}

func sortedColumns(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for col := range m {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func requireRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, ConvertError(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ConvertError(err)
	}
	return out, nil
}
