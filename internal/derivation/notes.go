package derivation

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
)

var notePrinter = message.NewPrinter(language.English)

// buildNote produces the free-form note attached to a draft. It references
// the source document and the derived amount; content is informational and
// not part of the structural contract.
func buildNote(draft *Draft) string {
	customer := ""
	if v, ok := draft.Fields["customerName"].(string); ok {
		customer = v
	}
	amount := notePrinter.Sprintf("%v", number.Decimal(draft.Totals.GrandTotal,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))

	switch draft.Kind {
	case docstore.KindInvoice:
		if customer == "" {
			return fmt.Sprintf("Invoice derived from %s %s. Amount due: %s %s.",
				draft.SourceKind, draft.SourceNumber, amount, draft.Currency)
		}
		return fmt.Sprintf("Invoice derived from %s %s for %s. Amount due: %s %s.",
			draft.SourceKind, draft.SourceNumber, customer, amount, draft.Currency)
	case docstore.KindFollowup:
		return fmt.Sprintf("Follow-up on %s %s (%s).", draft.SourceKind, draft.SourceNumber, customer)
	case docstore.KindSalesContract:
		return fmt.Sprintf("Contract drafted from %s %s. Contract amount: %s %s.",
			draft.SourceKind, draft.SourceNumber, amount, draft.Currency)
	case docstore.KindSiteInspection:
		return fmt.Sprintf("Inspection scheduled from %s %s.", draft.SourceKind, draft.SourceNumber)
	default:
		return fmt.Sprintf("Derived from %s %s.", draft.SourceKind, draft.SourceNumber)
	}
}
