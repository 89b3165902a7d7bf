package derivation

import (
	"sort"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
)

// fieldKind selects coercion and default for a target field.
type fieldKind int

const (
	fieldText fieldKind = iota
	fieldNumber
)

// fieldRule maps one target field to an ordered list of candidate source
// names. Candidates support dot paths ("customer.name"); the first present,
// non-empty value wins. Historical exports renamed fields more than once,
// which is why most chains carry snake_case, camelCase, and legacy aliases.
type fieldRule struct {
	target  string
	kind    fieldKind
	sources []string
}

// chainTable is the full recipe for one (source, target) pair.
type chainTable struct {
	fields []fieldRule
	// lineSources are candidate names for the source's sub-item list.
	// Empty means the target kind carries no line items.
	lineSources []string
	// taxSources resolve the tax rate applied to derived totals.
	taxSources []string
}

// lineRules map heterogeneous sub-item rows into money.LineItem. Shared by
// every pair that derives line items.
var lineRules = struct {
	description []string
	quantity    []string
	unitPrice   []string
	lineTotal   []string
}{
	description: []string{"description", "item_name", "product_name", "name", "model"},
	quantity:    []string{"quantity", "qty", "count", "units"},
	unitPrice:   []string{"unit_price", "unitPrice", "price", "unit_cost"},
	lineTotal:   []string{"line_total", "lineTotal", "total_price", "amount", "total"},
}

var customerChain = []string{"customer_name", "customerName", "receiver_name", "client_name"}
var contactChain = []string{"customer_phone", "customerPhone", "phone", "contact", "receiver_phone"}
var addressChain = []string{"site_address", "siteAddress", "address", "location", "install_address"}
var taxChain = []string{"tax_rate", "taxRate", "vat_rate"}

var derivations = map[Pair]chainTable{
	{docstore.KindQuotation, docstore.KindInvoice}: {
		fields: []fieldRule{
			{target: "customerName", kind: fieldText, sources: customerChain},
			{target: "customerContact", kind: fieldText, sources: contactChain},
			{target: "siteAddress", kind: fieldText, sources: addressChain},
			{target: "projectTitle", kind: fieldText, sources: []string{"project_title", "projectTitle", "title", "subject"}},
			{target: "paymentTerms", kind: fieldText, sources: []string{"payment_terms", "paymentTerms", "terms"}},
			{target: "dueDate", kind: fieldText, sources: []string{"due_date", "dueDate", "valid_until"}},
			{target: "discount", kind: fieldNumber, sources: []string{"discount", "discount_amount"}},
		},
		lineSources: []string{"items", "line_items", "order_items", "quote_items"},
		taxSources:  taxChain,
	},
	{docstore.KindDeliveryNote, docstore.KindInvoice}: {
		fields: []fieldRule{
			{target: "customerName", kind: fieldText, sources: []string{"receiver_name", "customer_name", "customerName"}},
			{target: "customerContact", kind: fieldText, sources: contactChain},
			{target: "siteAddress", kind: fieldText, sources: []string{"delivery_address", "site_address", "address"}},
			{target: "projectTitle", kind: fieldText, sources: []string{"project_title", "order_title", "subject"}},
			{target: "paymentTerms", kind: fieldText, sources: []string{"payment_terms", "terms"}},
			{target: "dueDate", kind: fieldText, sources: []string{"due_date", "payment_due"}},
			{target: "deliveryNo", kind: fieldText, sources: []string{"delivery_no", "deliveryNo", "doc_number"}},
		},
		lineSources: []string{"delivered_items", "items", "delivery_items"},
		taxSources:  taxChain,
	},
	{docstore.KindQuotation, docstore.KindSalesContract}: {
		fields: []fieldRule{
			{target: "customerName", kind: fieldText, sources: customerChain},
			{target: "customerContact", kind: fieldText, sources: contactChain},
			{target: "siteAddress", kind: fieldText, sources: addressChain},
			{target: "projectTitle", kind: fieldText, sources: []string{"project_title", "title", "subject"}},
			{target: "startDate", kind: fieldText, sources: []string{"start_date", "startDate", "install_date"}},
			{target: "warrantyMonths", kind: fieldNumber, sources: []string{"warranty_months", "warrantyMonths", "warranty"}},
		},
		lineSources: []string{"items", "line_items", "quote_items"},
		taxSources:  taxChain,
	},
	{docstore.KindDeliveryNote, docstore.KindFollowup}: {
		fields: []fieldRule{
			{target: "customerName", kind: fieldText, sources: []string{"receiver_name", "customer_name", "customerName"}},
			{target: "customerContact", kind: fieldText, sources: contactChain},
			{target: "siteAddress", kind: fieldText, sources: []string{"delivery_address", "site_address", "address"}},
			{target: "subject", kind: fieldText, sources: []string{"order_title", "project_title", "subject"}},
			{target: "deliveryNo", kind: fieldText, sources: []string{"delivery_no", "deliveryNo", "doc_number"}},
			{target: "scheduledDate", kind: fieldText, sources: []string{"followup_date", "next_visit", "scheduled_date"}},
			{target: "assignee", kind: fieldText, sources: []string{"assignee", "driver_name", "handler"}},
		},
	},
	{docstore.KindPreInstallation, docstore.KindSiteInspection}: {
		fields: []fieldRule{
			{target: "customerName", kind: fieldText, sources: customerChain},
			{target: "siteAddress", kind: fieldText, sources: addressChain},
			{target: "equipmentModel", kind: fieldText, sources: []string{"equipment_model", "equipmentModel", "model", "unit_model"}},
			{target: "serialNo", kind: fieldText, sources: []string{"serial_no", "serialNo", "serial_number"}},
			{target: "scheduledDate", kind: fieldText, sources: []string{"inspection_date", "scheduled_date", "install_date"}},
			{target: "inspector", kind: fieldText, sources: []string{"inspector", "engineer", "technician"}},
			{target: "capacityKW", kind: fieldNumber, sources: []string{"capacity_kw", "capacityKW", "capacity"}},
		},
	},
	{docstore.KindEquipmentTest, docstore.KindFollowup}: {
		fields: []fieldRule{
			{target: "customerName", kind: fieldText, sources: customerChain},
			{target: "customerContact", kind: fieldText, sources: contactChain},
			{target: "siteAddress", kind: fieldText, sources: addressChain},
			{target: "subject", kind: fieldText, sources: []string{"test_title", "subject", "equipment_model", "model"}},
			{target: "scheduledDate", kind: fieldText, sources: []string{"retest_date", "followup_date", "next_visit"}},
			{target: "assignee", kind: fieldText, sources: []string{"assignee", "technician", "engineer"}},
		},
	},
}

// Supported enumerates the derivation pairs in a stable order.
func Supported() []Pair {
	pairs := make([]Pair, 0, len(derivations))
	for pair := range derivations {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Source != pairs[j].Source {
			return pairs[i].Source < pairs[j].Source
		}
		return pairs[i].Target < pairs[j].Target
	})
	return pairs
}
