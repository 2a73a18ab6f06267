package enum

// ── State machine (CHECK constrained in DB) ──

const (
	OrderStatusDraft     = "draft"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeOnline   = "online"
)

// Source tags where an order came from. Dine-in and takeaway orders reuse
// the order type; online orders carry the delivery platform.
type Source string

const (
	SourceDineIn     Source = "dine-in"
	SourceTakeaway   Source = "takeaway"
	SourceGrabFood   Source = "grabfood"
	SourceShopeeFood Source = "shopeefood"
	SourceGoFood     Source = "gofood"
)

// OnlinePlatform reports whether the source is a third-party delivery
// platform. The revenue-split rule keys off this, so it must stay exhaustive
// over the platform constants above.
func (s Source) OnlinePlatform() bool {
	switch s {
	case SourceGrabFood, SourceShopeeFood, SourceGoFood:
		return true
	}
	return false
}

// ── Stakeholders ──

const (
	SupplierCodeS = "S" // Supplier-owned item / Supplier's till
	SupplierCodeP = "P" // Partner-owned item / Partner's till
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash      = "cash"
	PaymentMethodQRISS     = "qris_s" // QRIS tied to Supplier's account
	PaymentMethodQRISP     = "qris_p" // QRIS tied to Partner's account
	PaymentMethodTransfer  = "transfer"
	PaymentMethodGoPay     = "gopay"
	PaymentMethodShopeePay = "shopeepay"
	PaymentMethodOVO       = "ovo"
)

const ItemTypeMain = "main"

// ValidPaymentMethod reports whether s is one of the register's accepted
// payment methods.
func ValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodQRISS, PaymentMethodQRISP,
		PaymentMethodTransfer, PaymentMethodGoPay, PaymentMethodShopeePay,
		PaymentMethodOVO:
		return true
	}
	return false
}

// ValidOrderType reports whether s is a known order type.
func ValidOrderType(s string) bool {
	switch s {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeOnline:
		return true
	}
	return false
}

// ValidSource reports whether s is a known order source.
func ValidSource(s Source) bool {
	switch s {
	case SourceDineIn, SourceTakeaway, SourceGrabFood, SourceShopeeFood, SourceGoFood:
		return true
	}
	return false
}
