package report

import (
	"testing"

	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func makeText(val string) pgtype.Text {
	if val == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: val, Valid: true}
}

func dec(val string) decimal.Decimal {
	d, _ := decimal.NewFromString(val)
	return d
}

var defaultDirect = map[string]bool{enum.PaymentMethodQRISS: true}

// finalizedOrder builds a paid order with stamped shares.
func finalizedOrder(orderType, source, paymentMethod, total, supplierShare, partnerShare string) database.Order {
	return database.Order{
		ID:            uuid.New(),
		OrderType:     orderType,
		Source:        makeText(source),
		Status:        enum.OrderStatusPaid,
		TotalPrice:    makeNumeric(total),
		PaymentMethod: makeText(paymentMethod),
		SupplierShare: makeNumeric(supplierShare),
		PartnerShare:  makeNumeric(partnerShare),
	}
}

func TestSettleEmptyWindow(t *testing.T) {
	s := Settle(nil, nil, defaultDirect)
	if !s.Summary.Partner.CashInHand.IsZero() || !s.Summary.Supplier.Revenue.IsZero() {
		t.Errorf("empty window must be all zeros, got %+v", s.Summary)
	}
	if s.SupplierPending == nil || s.DetailItems == nil {
		t.Error("maps and slices must be non-nil for JSON encoding")
	}
}

func TestSettleCashOrderStaysWithPartner(t *testing.T) {
	o := finalizedOrder(enum.OrderTypeDineIn, "dine-in", enum.PaymentMethodCash, "35000", "30000", "5000")
	items := []database.SettlementItemRow{
		{OrderID: o.ID, MenuID: uuid.New(), MenuName: "Ayam Geprek Original", CategoryName: "Makanan",
			Quantity: 2, Subtotal: makeNumeric("30000"), SupplierCode: enum.SupplierCodeS, Source: o.Source},
		{OrderID: o.ID, MenuID: uuid.New(), MenuName: "Es Teh Manis", CategoryName: "Minuman",
			Quantity: 1, Subtotal: makeNumeric("5000"), SupplierCode: enum.SupplierCodeP, Source: o.Source},
	}

	s := Settle([]database.Order{o}, items, defaultDirect)

	if !s.Summary.Partner.CashInHand.Equal(dec("35000")) {
		t.Errorf("partner holds the full cash, got %v", s.Summary.Partner.CashInHand)
	}
	if !s.Summary.Supplier.CashReceived.IsZero() {
		t.Errorf("supplier received nothing directly, got %v", s.Summary.Supplier.CashReceived)
	}
	if !s.Summary.Supplier.CashPending.Equal(dec("30000")) {
		t.Errorf("supplier is owed 30000, got %v", s.Summary.Supplier.CashPending)
	}
	if !s.SupplierPending[enum.SupplierCodeS].Equal(dec("30000")) {
		t.Errorf("pending ledger S entry wrong: %v", s.SupplierPending)
	}
	if !s.SupplierPending[enum.SupplierCodeP].Equal(dec("5000")) {
		t.Errorf("pending ledger P entry wrong: %v", s.SupplierPending)
	}
	// The money owed to the Supplier is exactly the S-keyed pending.
	if !s.Summary.Supplier.CashPending.Equal(s.SupplierPending[enum.SupplierCodeS]) {
		t.Error("cash_pending must equal the S-keyed pending total")
	}
}

func TestSettleDirectMethodSkipsPartnerTill(t *testing.T) {
	o := finalizedOrder(enum.OrderTypeDineIn, "dine-in", enum.PaymentMethodQRISS, "15000", "15000", "0")
	items := []database.SettlementItemRow{
		{OrderID: o.ID, MenuID: uuid.New(), MenuName: "Ayam Geprek Original", CategoryName: "Makanan",
			Quantity: 1, Subtotal: makeNumeric("15000"), SupplierCode: enum.SupplierCodeS, Source: o.Source},
	}

	s := Settle([]database.Order{o}, items, defaultDirect)

	if !s.Summary.Partner.CashInHand.IsZero() {
		t.Errorf("direct method must not land in partner till, got %v", s.Summary.Partner.CashInHand)
	}
	if !s.Summary.Supplier.CashReceived.Equal(dec("15000")) {
		t.Errorf("expected supplier cash 15000, got %v", s.Summary.Supplier.CashReceived)
	}
	if !s.Summary.Supplier.CashPending.IsZero() {
		t.Errorf("nothing pending when paid direct, got %v", s.Summary.Supplier.CashPending)
	}
	if len(s.SupplierPending) != 0 {
		t.Errorf("pending ledger must be empty for direct orders, got %v", s.SupplierPending)
	}
	if len(s.DetailItems) != 1 {
		t.Fatalf("detail lines are emitted regardless of custody, got %d", len(s.DetailItems))
	}
}

func TestSettleOnlineOrderIsDirect(t *testing.T) {
	// Online payouts go to the Supplier even when no direct payment method
	// is recorded on the order.
	o := finalizedOrder(enum.OrderTypeOnline, string(enum.SourceGoFood), "", "19000", "19000", "0")
	o.Status = enum.OrderStatusCompleted

	s := Settle([]database.Order{o}, nil, defaultDirect)

	if !s.Summary.Supplier.CashReceived.Equal(dec("19000")) {
		t.Errorf("expected supplier cash 19000, got %v", s.Summary.Supplier.CashReceived)
	}
	if !s.Summary.Partner.CashInHand.IsZero() {
		t.Errorf("partner till must be untouched, got %v", s.Summary.Partner.CashInHand)
	}
}

func TestSettleMixedWindowConservation(t *testing.T) {
	cash := finalizedOrder(enum.OrderTypeDineIn, "dine-in", enum.PaymentMethodCash, "35000", "30000", "5000")
	direct := finalizedOrder(enum.OrderTypeTakeaway, "takeaway", enum.PaymentMethodQRISS, "15000", "15000", "0")
	online := finalizedOrder(enum.OrderTypeOnline, string(enum.SourceGrabFood), "", "24000", "24000", "0")

	s := Settle([]database.Order{cash, direct, online}, nil, defaultDirect)

	totalCash := s.Summary.Partner.CashInHand.Add(s.Summary.Supplier.CashReceived)
	if !totalCash.Equal(dec("74000")) {
		t.Errorf("custody must conserve the window total, got %v", totalCash)
	}
	totalRevenue := s.Summary.Partner.Revenue.Add(s.Summary.Supplier.Revenue)
	if !totalRevenue.Equal(dec("74000")) {
		t.Errorf("entitlement must conserve the window total, got %v", totalRevenue)
	}
	// 30000 earned in the cash order, nothing received from it yet.
	if !s.Summary.Supplier.CashPending.Equal(dec("30000")) {
		t.Errorf("expected pending 30000, got %v", s.Summary.Supplier.CashPending)
	}
}

func TestSettleUnknownSupplierCode(t *testing.T) {
	o := finalizedOrder(enum.OrderTypeDineIn, "dine-in", enum.PaymentMethodCash, "5000", "0", "5000")
	items := []database.SettlementItemRow{
		{OrderID: o.ID, MenuID: uuid.New(), MenuName: "Kerupuk", CategoryName: "Uncategorized",
			Quantity: 1, Subtotal: makeNumeric("5000"), SupplierCode: "", Source: o.Source},
	}

	s := Settle([]database.Order{o}, items, defaultDirect)
	if !s.SupplierPending["UNKNOWN"].Equal(dec("5000")) {
		t.Errorf("untagged items land under UNKNOWN, got %v", s.SupplierPending)
	}
}
