package store

import "strings"

// Row decoding helpers. Adapters hand back loosely typed rows; these
// coerce the common shapes without panicking on a missing or oddly
// typed column.

func stringField(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func intField(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// stringsField decodes a comma-joined TEXT column into a slice.
func stringsField(row map[string]any, key string) []string {
	s := stringField(row, key)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func entityFromRow(row map[string]any) Entity {
	return Entity{
		ID:                stringField(row, "id"),
		Kind:              stringField(row, "kind"),
		Name:              stringField(row, "name"),
		Brand:             stringField(row, "brand"),
		Category:          stringField(row, "category"),
		Description:       stringField(row, "description"),
		WeightGrams:       floatField(row, "weight_grams"),
		PriceUSD:          floatField(row, "price_usd"),
		SourceURL:         stringField(row, "source_url"),
		RelationshipCount: intField(row, "relationship_count"),
	}
}
