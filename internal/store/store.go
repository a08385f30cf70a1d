// Package store defines the boundary between the hygiene engine and
// the catalog it maintains. The engine never composes query text: it
// names an operation from a fixed catalog and supplies named
// arguments. Adapters map catalog names to whatever their backend
// speaks.
//
// The boundary fails closed: a backend error surfaces as false (for
// writes) or an empty result set (for reads), so detectors and
// handlers see "no evidence" rather than crashing mid-batch.
package store

import (
	"context"
	"errors"
)

// Sentinel errors for remediation outcomes.
var (
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrQueryFailed        = errors.New("query failed")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrUnsupportedFixType = errors.New("unsupported fix type")
	ErrMergeTargetMissing = errors.New("merge target missing")
)

// Op names one operation from the fixed query catalog.
type Op string

// The query catalog. Adapters must implement every name; an unknown
// name is a programming error and fails closed.
const (
	// Reads
	OpGetEntity      Op = "get_entity"       // args: id         → one entity row
	OpListEntities   Op = "list_entities"    // args: kind       → entity rows with relationship_count
	OpBrandItemCount Op = "brand_item_count" // args: brand      → item_count, sample row per item (limit 5)
	OpSimilarBrands  Op = "similar_brands"   // args: brand      → brand, item_count rows (limit 5)
	OpRelationships  Op = "relationships"    // args: id         → rel_count, rel_types
	OpProvenance     Op = "provenance"       // args: id         → source_url, video_sources, field_sources

	// Writes. Counted writes go through Query so the caller sees how
	// many rows changed.
	OpUpdateField      Op = "update_field"      // args: id, field, value → updated rows
	OpStandardizeBrand Op = "standardize_brand" // args: old_brand, new_brand → updated_count
	OpClearBrand       Op = "clear_brand"       // args: id → name of cleared entity
	OpTransferRels     Op = "transfer_rels"     // args: source_id, target_id, rel_type → transferred
	OpDeleteEntity     Op = "delete_entity"     // args: id → cascade delete
	OpCreateEntity     Op = "create_entity"     // args: id, kind, name, brand, ... (seeding)
	OpCreateRel        Op = "create_rel"        // args: src, rel_type, dst
	OpDeleteRel        Op = "delete_rel"        // args: src, rel_type, dst
)

// UpdatableFields is the closed set of entity fields a field-update
// fix may touch. The adapter rejects anything else.
var UpdatableFields = map[string]bool{
	"name":         true,
	"brand":        true,
	"category":     true,
	"description":  true,
	"weight_grams": true,
	"price_usd":    true,
	"source_url":   true,
}

// TransferableRelTypes is the fixed relationship set a merge carries
// from the duplicate to the canonical entity. Everything else stays
// with the source and dies with it.
var TransferableRelTypes = []string{"EXTRACTED_FROM", "HAS_TIP", "HAS_OPINION"}

// Querier executes catalog operations. Implementations must not
// return errors: Exec reports success as a bool and Query returns an
// empty slice on any failure.
type Querier interface {
	Exec(ctx context.Context, op Op, args map[string]any) bool
	Query(ctx context.Context, op Op, args map[string]any) []map[string]any
}

// Entity is the catalog row shape the engine works on. Zero values
// mean the field is missing; WeightGrams==0 reads as "no weight data".
type Entity struct {
	ID                string  `json:"id"`
	Kind              string  `json:"kind"`
	Name              string  `json:"name"`
	Brand             string  `json:"brand"`
	Category          string  `json:"category"`
	Description       string  `json:"description"`
	WeightGrams       float64 `json:"weight_grams"`
	PriceUSD          float64 `json:"price_usd"`
	SourceURL         string  `json:"source_url"`
	RelationshipCount int     `json:"relationship_count"`
}

// HasRelationships reports whether the entity is connected to
// anything else in the graph.
func (e *Entity) HasRelationships() bool {
	return e.RelationshipCount > 0
}

// Completeness scores how many of the core fields are populated, in
// [0,1] over {name, brand, weight, price}.
func (e *Entity) Completeness() float64 {
	score := 0.0
	if e.Name != "" {
		score += 0.25
	}
	if e.Brand != "" {
		score += 0.25
	}
	if e.WeightGrams > 0 {
		score += 0.25
	}
	if e.PriceUSD > 0 {
		score += 0.25
	}
	return score
}

// Catalog wraps a Querier with typed accessors. All engine code goes
// through Catalog; nothing above this package touches rows directly.
type Catalog struct {
	q Querier
}

// NewCatalog wraps a Querier.
func NewCatalog(q Querier) *Catalog {
	return &Catalog{q: q}
}

// GetEntity loads one entity. ok is false when the entity does not
// exist or the store failed.
func (c *Catalog) GetEntity(ctx context.Context, id string) (Entity, bool) {
	rows := c.q.Query(ctx, OpGetEntity, map[string]any{"id": id})
	if len(rows) == 0 {
		return Entity{}, false
	}
	return entityFromRow(rows[0]), true
}

// ListEntities loads every entity of a kind with its relationship
// count. Empty on store failure.
func (c *Catalog) ListEntities(ctx context.Context, kind string) []Entity {
	rows := c.q.Query(ctx, OpListEntities, map[string]any{"kind": kind})
	out := make([]Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, entityFromRow(r))
	}
	return out
}

// BrandInfo is graph context for one brand value.
type BrandInfo struct {
	Exists        bool
	ItemCount     int
	SampleItems   []string
	SimilarBrands []string
}

// BrandContext gathers how established a brand is in the catalog:
// exact-match item count plus similar spellings when absent.
func (c *Catalog) BrandContext(ctx context.Context, brand string) BrandInfo {
	var info BrandInfo
	if brand == "" {
		return info
	}
	for _, r := range c.q.Query(ctx, OpBrandItemCount, map[string]any{"brand": brand}) {
		info.ItemCount = intField(r, "item_count")
		if name := stringField(r, "name"); name != "" {
			info.SampleItems = append(info.SampleItems, name)
		}
	}
	if info.ItemCount > 0 {
		info.Exists = true
		return info
	}
	for _, r := range c.q.Query(ctx, OpSimilarBrands, map[string]any{"brand": brand}) {
		if b := stringField(r, "brand"); b != "" {
			info.SimilarBrands = append(info.SimilarBrands, b)
		}
	}
	return info
}

// RelationshipInfo returns how connected an entity is. found is false
// when the entity is unknown or the store failed; callers must not
// treat that as "orphaned".
func (c *Catalog) RelationshipInfo(ctx context.Context, id string) (count int, types []string, found bool) {
	rows := c.q.Query(ctx, OpRelationships, map[string]any{"id": id})
	if len(rows) == 0 {
		return 0, nil, false
	}
	return intField(rows[0], "rel_count"), stringsField(rows[0], "rel_types"), true
}

// ProvenanceInfo summarizes source attribution for an entity.
type ProvenanceInfo struct {
	SourceURL    string
	VideoSources int
	FieldSources int
}

// HasAny reports whether the entity carries any attribution at all.
func (p ProvenanceInfo) HasAny() bool {
	return p.SourceURL != "" || p.VideoSources > 0 || p.FieldSources > 0
}

// Provenance loads source attribution. found is false on miss/failure.
func (c *Catalog) Provenance(ctx context.Context, id string) (ProvenanceInfo, bool) {
	rows := c.q.Query(ctx, OpProvenance, map[string]any{"id": id})
	if len(rows) == 0 {
		return ProvenanceInfo{}, false
	}
	return ProvenanceInfo{
		SourceURL:    stringField(rows[0], "source_url"),
		VideoSources: intField(rows[0], "video_sources"),
		FieldSources: intField(rows[0], "field_sources"),
	}, true
}

// UpdateField sets one whitelisted field on one entity.
func (c *Catalog) UpdateField(ctx context.Context, id, field string, value any) error {
	if !UpdatableFields[field] {
		return ErrUnsupportedFixType
	}
	rows := c.q.Query(ctx, OpUpdateField, map[string]any{
		"id": id, "field": field, "value": value,
	})
	if len(rows) == 0 || intField(rows[0], "updated") == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// StandardizeBrand rewrites every entity carrying oldBrand to
// newBrand, returning how many rows changed.
func (c *Catalog) StandardizeBrand(ctx context.Context, oldBrand, newBrand string) (int, error) {
	rows := c.q.Query(ctx, OpStandardizeBrand, map[string]any{
		"old_brand": oldBrand, "new_brand": newBrand,
	})
	if len(rows) == 0 {
		return 0, ErrQueryFailed
	}
	return intField(rows[0], "updated_count"), nil
}

// ClearBrand blanks the brand field on one entity, returning its name.
func (c *Catalog) ClearBrand(ctx context.Context, id string) (string, error) {
	rows := c.q.Query(ctx, OpClearBrand, map[string]any{"id": id})
	if len(rows) == 0 {
		return "", ErrEntityNotFound
	}
	return stringField(rows[0], "name"), nil
}

// TransferRelationships moves the fixed transferable relationship set
// from source to target, one type at a time, and returns the total
// moved. A failed type contributes zero and the rest still run.
func (c *Catalog) TransferRelationships(ctx context.Context, sourceID, targetID string) int {
	total := 0
	for _, relType := range TransferableRelTypes {
		rows := c.q.Query(ctx, OpTransferRels, map[string]any{
			"source_id": sourceID, "target_id": targetID, "rel_type": relType,
		})
		if len(rows) > 0 {
			total += intField(rows[0], "transferred")
		}
	}
	return total
}

// DeleteEntity removes an entity and everything attached to it.
func (c *Catalog) DeleteEntity(ctx context.Context, id string) error {
	if !c.q.Exec(ctx, OpDeleteEntity, map[string]any{"id": id}) {
		return ErrQueryFailed
	}
	return nil
}

// CreateEntity inserts a full entity row. Used by seeding and tests.
func (c *Catalog) CreateEntity(ctx context.Context, e Entity) error {
	ok := c.q.Exec(ctx, OpCreateEntity, map[string]any{
		"id": e.ID, "kind": e.Kind, "name": e.Name, "brand": e.Brand,
		"category": e.Category, "description": e.Description,
		"weight_grams": e.WeightGrams, "price_usd": e.PriceUSD,
		"source_url": e.SourceURL,
	})
	if !ok {
		return ErrQueryFailed
	}
	return nil
}

// CreateRelationship links src to dst with the given type.
func (c *Catalog) CreateRelationship(ctx context.Context, src, relType, dst string) error {
	if !c.q.Exec(ctx, OpCreateRel, map[string]any{"src": src, "rel_type": relType, "dst": dst}) {
		return ErrQueryFailed
	}
	return nil
}

// DeleteRelationship removes one link.
func (c *Catalog) DeleteRelationship(ctx context.Context, src, relType, dst string) error {
	if !c.q.Exec(ctx, OpDeleteRel, map[string]any{"src": src, "rel_type": relType, "dst": dst}) {
		return ErrQueryFailed
	}
	return nil
}
