package sqlite

import (
	"context"
	"database/sql"

	"github.com/schmelli/gearkeeper/internal/store"
)

// readQueries maps read operations to their SQL. Args bind by name.
var readQueries = map[store.Op]string{
	store.OpGetEntity: `
		SELECT e.id, e.kind, e.name, e.brand, e.category, e.description,
		       e.weight_grams, e.price_usd, e.source_url,
		       (SELECT COUNT(*) FROM relationships r
		        WHERE r.src = e.id OR r.dst = e.id) AS relationship_count
		FROM entities e WHERE e.id = :id`,

	store.OpListEntities: `
		SELECT e.id, e.kind, e.name, e.brand, e.category, e.description,
		       e.weight_grams, e.price_usd, e.source_url,
		       (SELECT COUNT(*) FROM relationships r
		        WHERE r.src = e.id OR r.dst = e.id) AS relationship_count
		FROM entities e WHERE e.kind = :kind ORDER BY e.id`,

	store.OpBrandItemCount: `
		SELECT name,
		       (SELECT COUNT(*) FROM entities
		        WHERE brand = :brand COLLATE NOCASE) AS item_count
		FROM entities WHERE brand = :brand COLLATE NOCASE
		ORDER BY name LIMIT 5`,

	store.OpSimilarBrands: `
		SELECT brand, COUNT(*) AS item_count FROM entities
		WHERE brand != ''
		  AND (instr(lower(brand), lower(:brand)) > 0
		       OR instr(lower(:brand), lower(brand)) > 0)
		GROUP BY brand ORDER BY item_count DESC LIMIT 5`,

	store.OpRelationships: `
		SELECT COUNT(*) AS rel_count,
		       COALESCE(group_concat(DISTINCT rel_type), '') AS rel_types
		FROM relationships WHERE src = :id OR dst = :id`,

	store.OpProvenance: `
		SELECT e.source_url,
		       (SELECT COUNT(*) FROM relationships r
		        WHERE r.src = e.id AND r.rel_type = 'EXTRACTED_FROM') AS video_sources,
		       (SELECT COUNT(*) FROM relationships r
		        WHERE r.src = e.id AND r.rel_type = 'HAS_FIELD_SOURCE') AS field_sources
		FROM entities e WHERE e.id = :id`,
}

// fieldUpdateQueries holds one fixed statement per updatable field.
// Selecting from this map is how a field name reaches SQL.
var fieldUpdateQueries = map[string]string{
	"name":         `UPDATE entities SET name = :value, updated_at = datetime('now') WHERE id = :id`,
	"brand":        `UPDATE entities SET brand = :value, updated_at = datetime('now') WHERE id = :id`,
	"category":     `UPDATE entities SET category = :value, updated_at = datetime('now') WHERE id = :id`,
	"description":  `UPDATE entities SET description = :value, updated_at = datetime('now') WHERE id = :id`,
	"weight_grams": `UPDATE entities SET weight_grams = :value, updated_at = datetime('now') WHERE id = :id`,
	"price_usd":    `UPDATE entities SET price_usd = :value, updated_at = datetime('now') WHERE id = :id`,
	"source_url":   `UPDATE entities SET source_url = :value, updated_at = datetime('now') WHERE id = :id`,
}

// execQueries maps plain write operations to their SQL.
var execQueries = map[store.Op]string{
	store.OpCreateEntity: `
		INSERT INTO entities (id, kind, name, brand, category, description,
		                      weight_grams, price_usd, source_url)
		VALUES (:id, :kind, :name, :brand, :category, :description,
		        :weight_grams, :price_usd, :source_url)`,

	store.OpCreateRel: `
		INSERT OR IGNORE INTO relationships (src, rel_type, dst)
		VALUES (:src, :rel_type, :dst)`,

	store.OpDeleteRel: `
		DELETE FROM relationships
		WHERE src = :src AND rel_type = :rel_type AND dst = :dst`,
}

// Exec runs a plain write from the catalog. False on any failure,
// including an operation the adapter does not recognize.
func (s *Store) Exec(ctx context.Context, op store.Op, args map[string]any) bool {
	if op == store.OpDeleteEntity {
		return s.deleteEntity(ctx, args)
	}
	query, ok := execQueries[op]
	if !ok {
		return false
	}
	_, err := s.db.ExecContext(ctx, query, namedArgs(args)...)
	return err == nil
}

// Query runs a read or counted write from the catalog. Empty on any
// failure.
func (s *Store) Query(ctx context.Context, op store.Op, args map[string]any) []map[string]any {
	switch op {
	case store.OpUpdateField:
		return s.updateField(ctx, args)
	case store.OpStandardizeBrand:
		return s.standardizeBrand(ctx, args)
	case store.OpClearBrand:
		return s.clearBrand(ctx, args)
	case store.OpTransferRels:
		return s.transferRels(ctx, args)
	}

	query, ok := readQueries[op]
	if !ok {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, query, namedArgs(args)...)
	if err != nil {
		return nil
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *Store) updateField(ctx context.Context, args map[string]any) []map[string]any {
	field, _ := args["field"].(string)
	query, ok := fieldUpdateQueries[field]
	if !ok {
		return nil
	}
	res, err := s.db.ExecContext(ctx, query,
		sql.Named("id", args["id"]), sql.Named("value", args["value"]))
	if err != nil {
		return nil
	}
	n, _ := res.RowsAffected()
	return []map[string]any{{"updated": n}}
}

func (s *Store) standardizeBrand(ctx context.Context, args map[string]any) []map[string]any {
	res, err := s.db.ExecContext(ctx, `
		UPDATE entities SET brand = :new_brand, updated_at = datetime('now')
		WHERE brand = :old_brand`,
		sql.Named("new_brand", args["new_brand"]),
		sql.Named("old_brand", args["old_brand"]))
	if err != nil {
		return nil
	}
	n, _ := res.RowsAffected()
	return []map[string]any{{"updated_count": n}}
}

func (s *Store) clearBrand(ctx context.Context, args map[string]any) []map[string]any {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM entities WHERE id = :id`,
		sql.Named("id", args["id"])).Scan(&name)
	if err != nil {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE entities SET brand = '', updated_at = datetime('now')
		WHERE id = :id`, sql.Named("id", args["id"]))
	if err != nil {
		return nil
	}
	return []map[string]any{{"name": name}}
}

func (s *Store) transferRels(ctx context.Context, args map[string]any) []map[string]any {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO relationships (src, rel_type, dst)
		SELECT :target_id, rel_type, dst FROM relationships
		WHERE src = :source_id AND rel_type = :rel_type`,
		sql.Named("target_id", args["target_id"]),
		sql.Named("source_id", args["source_id"]),
		sql.Named("rel_type", args["rel_type"]))
	if err != nil {
		return nil
	}
	n, _ := res.RowsAffected()
	return []map[string]any{{"transferred": n}}
}

// deleteEntity removes the entity and every relationship touching it,
// in one transaction.
func (s *Store) deleteEntity(ctx context.Context, args map[string]any) bool {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relationships WHERE src = :id OR dst = :id`,
		sql.Named("id", args["id"])); err != nil {
		return false
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entities WHERE id = :id`,
		sql.Named("id", args["id"])); err != nil {
		return false
	}
	return tx.Commit() == nil
}

func namedArgs(args map[string]any) []any {
	out := make([]any, 0, len(args))
	for k, v := range args {
		out = append(out, sql.Named(k, v))
	}
	return out
}

// scanRows converts a result set into the generic row shape.
func scanRows(rows *sql.Rows) []map[string]any {
	cols, err := rows.Columns()
	if err != nil {
		return nil
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil
	}
	return out
}
