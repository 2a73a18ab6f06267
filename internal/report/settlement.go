// Package report holds the pure aggregation logic behind the settlement and
// dashboard endpoints. Everything here operates on finalized orders already
// loaded from the store; nothing in this package touches the database.
package report

import (
	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerSummary is the Partner's side of a settlement window.
type PartnerSummary struct {
	CashInHand decimal.Decimal `json:"cash_in_hand"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// SupplierSummary is the Supplier's side of a settlement window.
// CashPending is what the Supplier has earned but not yet received, because
// the money sits in the Partner's register.
type SupplierSummary struct {
	Revenue      decimal.Decimal `json:"revenue"`
	CashReceived decimal.Decimal `json:"cash_received"`
	CashPending  decimal.Decimal `json:"cash_pending"`
}

// SettlementDetail is one audit line per sold item.
type SettlementDetail struct {
	MenuID       uuid.UUID       `json:"menu_id"`
	MenuName     string          `json:"menu_name"`
	CategoryName string          `json:"category_name"`
	Quantity     int32           `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	SupplierCode string          `json:"supplier_code"`
	Source       string          `json:"source"`
}

// Settlement is the full settlement report for a date window.
type Settlement struct {
	Summary struct {
		Partner  PartnerSummary  `json:"partner"`
		Supplier SupplierSummary `json:"supplier"`
	} `json:"summary"`
	SupplierPending map[string]decimal.Decimal `json:"supplier_pending"`
	DetailItems     []SettlementDetail         `json:"detail_items"`
}

// directToSupplier reports whether an order's money never passes through the
// Partner's register: online platforms pay out to the Supplier's account, and
// certain register methods (a QRIS tied to the Supplier) do the same.
func directToSupplier(o database.Order, directMethods map[string]bool) bool {
	if o.OrderType == enum.OrderTypeOnline || enum.Source(o.Source.String).OnlinePlatform() {
		return true
	}
	return directMethods[o.PaymentMethod.String]
}

// Settle computes the settlement report from a window of finalized orders
// and their item rows. directMethods is the set of payment methods whose
// money goes straight to the Supplier.
//
// Revenue accumulates from the per-order shares stamped at checkout, so the
// report agrees with what the register showed at the time of sale even if
// menu supplier tags change later. Cash custody accumulates the full order
// total into whichever till physically holds it.
func Settle(orders []database.Order, items []database.SettlementItemRow, directMethods map[string]bool) Settlement {
	var s Settlement
	s.SupplierPending = make(map[string]decimal.Decimal)
	s.DetailItems = []SettlementDetail{}

	supplierRevenue := decimal.Zero
	supplierCashDirect := decimal.Zero
	partnerCash := decimal.Zero
	partnerRevenue := decimal.Zero

	direct := make(map[uuid.UUID]bool, len(orders))
	for _, o := range orders {
		d := directToSupplier(o, directMethods)
		direct[o.ID] = d

		supplierRevenue = supplierRevenue.Add(numericToDecimal(o.SupplierShare))
		partnerRevenue = partnerRevenue.Add(numericToDecimal(o.PartnerShare))

		if d {
			supplierCashDirect = supplierCashDirect.Add(numericToDecimal(o.TotalPrice))
		} else {
			partnerCash = partnerCash.Add(numericToDecimal(o.TotalPrice))
		}
	}

	for _, it := range items {
		subtotal := numericToDecimal(it.Subtotal)
		s.DetailItems = append(s.DetailItems, SettlementDetail{
			MenuID:       it.MenuID,
			MenuName:     it.MenuName,
			CategoryName: it.CategoryName,
			Quantity:     it.Quantity,
			Subtotal:     subtotal,
			SupplierCode: it.SupplierCode,
			Source:       it.Source.String,
		})

		// The pending ledger only tracks money sitting in the Partner's
		// till. P-keyed entries are informational (Partner's own goods);
		// S-keyed entries are the debt to the Supplier.
		if !direct[it.OrderID] {
			code := it.SupplierCode
			if code == "" {
				code = "UNKNOWN"
			}
			s.SupplierPending[code] = s.SupplierPending[code].Add(subtotal)
		}
	}

	s.Summary.Partner = PartnerSummary{
		CashInHand: partnerCash,
		Revenue:    partnerRevenue,
	}
	s.Summary.Supplier = SupplierSummary{
		Revenue:      supplierRevenue,
		CashReceived: supplierCashDirect,
		CashPending:  supplierRevenue.Sub(supplierCashDirect),
	}
	return s
}
