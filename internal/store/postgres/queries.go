package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/alfredjeanlab/catalog/internal/store"
)

// documentColumns is the column list used for SELECT statements on the documents table.
var documentColumns = []string{"id", "collection", "data", "created_at", "updated_at"}

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// filterDocuments restricts a select to one collection and the equality
// filters in where, expressed as a single JSONB containment so the GIN index
// applies.
func filterDocuments(b sq.SelectBuilder, collection string, where map[string]any) (sq.SelectBuilder, error) {
	b = b.Where(sq.Eq{"collection": collection})
	if len(where) == 0 {
		return b, nil
	}
	filter, err := jsonbText(where)
	if err != nil {
		return b, fmt.Errorf("encode filter: %w", err)
	}
	return b.Where("data @> ?::jsonb", filter), nil
}

func queryCount(ctx context.Context, db executor, collection string, where map[string]any) (int, error) {
	b, err := filterDocuments(psql.Select("COUNT(*)").From("documents"), collection, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func queryFind(ctx context.Context, db executor, collection string, q store.Query) ([]*store.Document, int, error) {
	total, err := queryCount(ctx, db, collection, q.Where)
	if err != nil {
		return nil, 0, err
	}

	b, err := filterDocuments(psql.Select(documentColumns...).From("documents"), collection, q.Where)
	if err != nil {
		return nil, 0, err
	}
	order, orderArgs := parseSortClause(q.Sort)
	b = b.OrderByClause(order, orderArgs...)
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit)).Offset(uint64(q.Offset()))
	}

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build find: %w", err)
	}
	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []*store.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan documents: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, total, nil
}

func queryGet(ctx context.Context, db executor, collection, id string) (*store.Document, error) {
	sqlStr, args, err := psql.Select(documentColumns...).From("documents").
		Where(sq.Eq{"collection": collection, "id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}
	d, err := scanDocument(db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return d, nil
}

func queryInsert(ctx context.Context, db executor, d *store.Document) error {
	data, err := jsonbText(d.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	sqlStr, args, err := psql.Insert("documents").
		Columns(documentColumns...).
		Values(d.ID, d.Collection, sq.Expr("?::jsonb", data), d.CreatedAt, d.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

func queryReplace(ctx context.Context, db executor, d *store.Document) error {
	data, err := jsonbText(d.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	sqlStr, args, err := psql.Update("documents").
		Set("data", sq.Expr("?::jsonb", data)).
		Set("updated_at", d.UpdatedAt).
		Where(sq.Eq{"collection": d.Collection, "id": d.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build replace: %w", err)
	}
	res, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", d.Collection, d.ID, err)
	}
	return requireRow(res, "replace "+d.Collection+"/"+d.ID)
}

func queryDelete(ctx context.Context, db executor, collection, id string) error {
	sqlStr, args, err := psql.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return requireRow(res, "delete "+collection+"/"+id)
}

// requireRow maps a zero-row write to store.ErrNotFound.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}

func queryExists(ctx context.Context, db executor, collection, field string, value any, excludeID string) (bool, error) {
	b, err := filterDocuments(psql.Select("1").From("documents"), collection, map[string]any{field: value})
	if err != nil {
		return false, err
	}
	if excludeID != "" {
		b = b.Where(sq.NotEq{"id": excludeID})
	}
	sqlStr, args, err := b.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}
	var ok bool
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists %s.%s: %w", collection, field, err)
	}
	return ok, nil
}

func queryGetGlobal(ctx context.Context, db executor, slug string) (*store.GlobalDoc, error) {
	sqlStr, args, err := psql.Select("slug", "data", "updated_at").From("globals").
		Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get global: %w", err)
	}
	g, err := scanGlobal(db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get global %s: %w", slug, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get global %s: %w", slug, err)
	}
	return g, nil
}

func queryPutGlobal(ctx context.Context, db executor, g *store.GlobalDoc) error {
	data, err := jsonbText(g.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	sqlStr, args, err := psql.Insert("globals").
		Columns("slug", "data", "updated_at").
		Values(g.Slug, sq.Expr("?::jsonb", data), g.UpdatedAt).
		Suffix("ON CONFLICT (slug) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build put global: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("put global %s: %w", g.Slug, err)
	}
	return nil
}

// metaColumns maps the reserved sort keys to their columns.
var metaColumns = map[string]string{
	store.KeyID:        "id",
	store.KeyCreatedAt: "created_at",
	store.KeyUpdatedAt: "updated_at",
}

// parseSortClause turns "field" or "-field" into an ORDER BY expression.
// Data fields sort by their JSONB value; ties break on id.
func parseSortClause(sort string) (string, []any) {
	if sort == "" {
		return "created_at DESC, id ASC", nil
	}
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
	}
	key := strings.TrimPrefix(sort, "-")
	if col, ok := metaColumns[key]; ok {
		if col == "id" {
			return "id " + dir, nil
		}
		return col + " " + dir + ", id ASC", nil
	}
	return "data->? " + dir + ", id ASC", []any{key}
}
