// Package derivation builds best-effort drafts of one document kind from
// the fields of a structurally different kind, using explicit per-pair
// field resolution chains.
package derivation

import (
	"errors"
	"fmt"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/money"
)

// ErrUnsupportedDerivation indicates no resolution chain table exists for
// the requested (source, target) pair. The supported pairs are enumerable;
// there is deliberately no generic reflection-based fallback.
var ErrUnsupportedDerivation = errors.New("derivation: unsupported source/target pair")

// Pair identifies one supported derivation.
type Pair struct {
	Source docstore.Kind `json:"source"`
	Target docstore.Kind `json:"target"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.Source, p.Target)
}

// Draft is a fully shaped target document awaiting user review. Every
// canonical field of the target kind is present: resolved from the source
// where a chain matched, defaulted otherwise. Unresolved names the fields
// that fell back to defaults so the UI can point at them.
type Draft struct {
	Kind         docstore.Kind    `json:"kind"`
	Fields       map[string]any   `json:"fields"`
	Lines        []money.LineItem `json:"lines"`
	Totals       money.Totals     `json:"totals"`
	Note         string           `json:"note"`
	SourceKind   docstore.Kind    `json:"sourceKind"`
	SourceID     string           `json:"sourceId"`
	SourceNumber string           `json:"sourceNumber"`
	Branch       string           `json:"branch"`
	Currency     string           `json:"currency"`
	Unresolved   []string         `json:"unresolved"`
}
