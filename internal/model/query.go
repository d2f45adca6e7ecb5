package model

import (
	"context"

	"github.com/trestlehq/trestle/internal/database"
	"github.com/trestlehq/trestle/internal/metadata"
)

// FindAll queries the entity's table and materializes a record per row.
// When the caller does not order the query, the entity's configured default
// sort applies.
func FindAll(ctx context.Context, engine *metadata.Engine, conn database.Connector, entityName string, criteria map[string]any, params database.QueryParams, opts ...Option) ([]*Model, error) {
	meta, err := engine.Entity(ctx, entityName)
	if err != nil {
		return nil, err
	}
	if params.OrderBy == "" && meta.List != nil {
		params.OrderBy = meta.List.DefaultSort
	}
	if params.Limit == 0 && meta.List != nil {
		params.Limit = meta.List.PerPage
	}

	rows, err := conn.Find(ctx, meta.Table, criteria, nil, params)
	if err != nil {
		return nil, err
	}
	out := make([]*Model, 0, len(rows))
	for _, row := range rows {
		m, err := New(ctx, engine, conn, entityName, opts...)
		if err != nil {
			return nil, err
		}
		m.Populate(row)
		out = append(out, m)
	}
	return out, nil
}

// FindOne returns the first record matching criteria, or database.ErrNotFound.
func FindOne(ctx context.Context, engine *metadata.Engine, conn database.Connector, entityName string, criteria map[string]any, opts ...Option) (*Model, error) {
	records, err := FindAll(ctx, engine, conn, entityName, criteria, database.QueryParams{Limit: 1}, opts...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, database.ErrNotFound
	}
	return records[0], nil
}
