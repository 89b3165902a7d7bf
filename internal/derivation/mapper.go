package derivation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/money"
)

// Mapper turns a source document into a target draft using the resolution
// chain tables. Pure; safe for concurrent use.
type Mapper struct {
	defaultTaxRate float64
}

// NewMapper constructs a Mapper. defaultTaxRate applies when no tax field
// resolves from the source.
func NewMapper(defaultTaxRate float64) *Mapper {
	if defaultTaxRate < 0 {
		defaultTaxRate = 0
	}
	return &Mapper{defaultTaxRate: defaultTaxRate}
}

// Derive builds the target draft. Missing fields resolve to documented
// defaults (empty string, zero) and are reported in Draft.Unresolved; the
// draft is always fully shaped for its kind.
func (m *Mapper) Derive(source *docstore.Document, targetKind docstore.Kind) (*Draft, error) {
	pair := Pair{Source: source.Kind, Target: targetKind}
	table, ok := derivations[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDerivation, pair)
	}

	bag := sourceBag(source)
	draft := &Draft{
		Kind:         targetKind,
		Fields:       make(map[string]any, len(table.fields)),
		SourceKind:   source.Kind,
		SourceID:     source.ID,
		SourceNumber: source.Number,
		Branch:       source.Branch,
		Currency:     source.Currency,
	}

	for _, rule := range table.fields {
		value, resolved := resolveField(bag, rule)
		draft.Fields[rule.target] = value
		if !resolved {
			draft.Unresolved = append(draft.Unresolved, rule.target)
		}
	}

	if len(table.lineSources) > 0 {
		draft.Lines = m.deriveLines(bag, table.lineSources, source.Lines)
		taxRate := m.defaultTaxRate
		if raw, ok := lookupFirst(bag, table.taxSources); ok {
			if rate, ok := coerceNumber(raw); ok && rate >= 0 {
				taxRate = rate
			}
		}
		draft.Totals = money.ComputeTotals(draft.Lines, taxRate)
	}

	draft.Note = buildNote(draft)
	return draft, nil
}

// deriveLines maps the first present sub-item list through the shared line
// chains. When the source has no aliased list but carries canonical lines,
// those are re-normalized instead.
func (m *Mapper) deriveLines(bag map[string]any, lineSources []string, canonical []money.LineItem) []money.LineItem {
	raw, ok := lookupFirst(bag, lineSources)
	if !ok {
		lines := make([]money.LineItem, 0, len(canonical))
		for _, item := range canonical {
			total := item.LineTotal
			lines = append(lines, money.NewLineItem(item.Description, item.Quantity, item.UnitPrice, &total))
		}
		return lines
	}

	rows := toRows(raw)
	lines := make([]money.LineItem, 0, len(rows))
	for _, row := range rows {
		description := ""
		if v, ok := lookupFirst(row, lineRules.description); ok {
			description = coerceText(v)
		}
		quantity := 0.0
		if v, ok := lookupFirst(row, lineRules.quantity); ok {
			if q, ok := coerceNumber(v); ok {
				quantity = q
			}
		}
		unitPrice := 0.0
		if v, ok := lookupFirst(row, lineRules.unitPrice); ok {
			if p, ok := coerceNumber(v); ok {
				unitPrice = p
			}
		}
		// explicit source totals survive; everything else is qty times price
		var explicit *float64
		if v, ok := lookupFirst(row, lineRules.lineTotal); ok {
			if t, ok := coerceNumber(v); ok {
				explicit = &t
			}
		}
		lines = append(lines, money.NewLineItem(description, quantity, unitPrice, explicit))
	}
	return lines
}

// sourceBag merges the document's field bag with its typed columns so
// chains can reference either.
func sourceBag(doc *docstore.Document) map[string]any {
	bag := make(map[string]any, len(doc.Fields)+4)
	for k, v := range doc.Fields {
		bag[k] = v
	}
	if _, ok := bag["doc_number"]; !ok {
		bag["doc_number"] = doc.Number
	}
	if _, ok := bag["doc_date"]; !ok && !doc.Date.IsZero() {
		bag["doc_date"] = doc.Date.Format("2006-01-02")
	}
	if _, ok := bag["branch"]; !ok {
		bag["branch"] = doc.Branch
	}
	if _, ok := bag["currency"]; !ok {
		bag["currency"] = doc.Currency
	}
	return bag
}

func resolveField(bag map[string]any, rule fieldRule) (any, bool) {
	raw, ok := lookupFirst(bag, rule.sources)
	switch rule.kind {
	case fieldNumber:
		if ok {
			if n, numeric := coerceNumber(raw); numeric {
				return n, true
			}
		}
		// unparseable numerics default to zero, never an error
		return 0.0, false
	default:
		if ok {
			if text := coerceText(raw); text != "" {
				return text, true
			}
		}
		return "", false
	}
}

// lookupFirst walks the candidate names in priority order and returns the
// first present, non-null, non-empty value.
func lookupFirst(bag map[string]any, candidates []string) (any, bool) {
	for _, name := range candidates {
		if value, ok := lookupPath(bag, name); ok {
			return value, true
		}
	}
	return nil, false
}

// lookupPath reads a possibly dotted path ("customer.name") from the bag.
func lookupPath(bag map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = bag
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	if s, ok := current.(string); ok && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return current, true
}

func toRows(raw any) []map[string]any {
	switch list := raw.(type) {
	case []map[string]any:
		return list
	case []any:
		rows := make([]map[string]any, 0, len(list))
		for _, entry := range list {
			if m, ok := entry.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
		return rows
	default:
		return nil
	}
}

func coerceText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	case float64, float32, int, int32, int64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}

// coerceNumber tolerantly reads numerics: JSON numbers, ints, numeric
// strings with currency symbols. Unparseable input reports false and the
// caller defaults to zero.
func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return money.ParseAmount(t)
	default:
		return 0, false
	}
}
