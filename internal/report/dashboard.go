package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopItem is one row of the best-seller list.
type TopItem struct {
	Name string `json:"name"`
	Qty  int64  `json:"qty"`
}

// HourBucket is one hour of the intraday histogram.
type HourBucket struct {
	Hour  int             `json:"hour"`
	Sales decimal.Decimal `json:"sales"`
	Count int             `json:"count"`
}

// Transaction is one finalized order formatted for the dashboard list.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	OrderType     string          `json:"order_type"`
	Source        string          `json:"source,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	TableName     string          `json:"table_name"`
}

// Dashboard is the aggregated view for a date window.
type Dashboard struct {
	Summary struct {
		TotalTrx   int             `json:"total_trx"`
		TotalSales decimal.Decimal `json:"total_sales"`
	} `json:"summary"`
	PaymentSummary map[string]int `json:"payment_summary"`
	TopItems       []TopItem      `json:"top_items"`
	Hourly         []HourBucket   `json:"hourly"`
	Transactions   []Transaction  `json:"transactions"`
}

const topItemLimit = 10

// Aggregate builds the dashboard from a window of finalized orders and their
// item rows. tableNumbers maps table id to its number for the "Meja N"
// labels; loc is the outlet's timezone for the hourly histogram.
func Aggregate(orders []database.Order, items []database.SettlementItemRow, tableNumbers map[uuid.UUID]string, loc *time.Location) Dashboard {
	var d Dashboard
	d.PaymentSummary = make(map[string]int)
	d.TopItems = []TopItem{}
	d.Transactions = []Transaction{}

	totalSales := decimal.Zero
	hourly := make([]HourBucket, 24)
	for h := range hourly {
		hourly[h] = HourBucket{Hour: h, Sales: decimal.Zero}
	}

	for _, o := range orders {
		total := numericToDecimal(o.TotalPrice)
		totalSales = totalSales.Add(total)

		// Payment bucket falls back to the order's channel so online
		// orders without a recorded method still show up somewhere.
		pm := o.PaymentMethod.String
		if pm == "" {
			pm = o.Source.String
		}
		if pm == "" {
			pm = "unknown"
		}
		d.PaymentSummary[pm]++

		hour := orderTime(o).In(loc).Hour()
		hourly[hour].Sales = hourly[hour].Sales.Add(total)
		hourly[hour].Count++

		d.Transactions = append(d.Transactions, Transaction{
			ID:            o.ID,
			CreatedAt:     o.CreatedAt,
			TotalPrice:    total,
			PaymentMethod: o.PaymentMethod.String,
			OrderType:     o.OrderType,
			Source:        o.Source.String,
			CustomerName:  o.CustomerName.String,
			ExternalID:    o.ExternalID.String,
			TableName:     tableLabel(o, tableNumbers),
		})
	}

	// Top sellers by quantity, first-seen order breaking ties.
	qtyByName := make(map[string]int64)
	var names []string
	for _, it := range items {
		if _, seen := qtyByName[it.MenuName]; !seen {
			names = append(names, it.MenuName)
		}
		qtyByName[it.MenuName] += int64(it.Quantity)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return qtyByName[names[i]] > qtyByName[names[j]]
	})
	if len(names) > topItemLimit {
		names = names[:topItemLimit]
	}
	for _, name := range names {
		d.TopItems = append(d.TopItems, TopItem{Name: name, Qty: qtyByName[name]})
	}

	d.Summary.TotalTrx = len(orders)
	d.Summary.TotalSales = totalSales
	d.Hourly = hourly
	return d
}

// orderTime is the moment an order counts toward reporting: when it was
// paid, falling back to creation for rows finalized before paid_at existed.
func orderTime(o database.Order) time.Time {
	if o.PaidAt.Valid {
		return o.PaidAt.Time
	}
	return o.CreatedAt
}

// tableLabel renders the channel label shown on the register history.
func tableLabel(o database.Order, tableNumbers map[uuid.UUID]string) string {
	if o.TableID.Valid {
		if num, ok := tableNumbers[uuid.UUID(o.TableID.Bytes)]; ok {
			return fmt.Sprintf("Meja %s", num)
		}
	}
	if o.OrderType == enum.OrderTypeOnline {
		return fmt.Sprintf("Online (%s)", o.Source.String)
	}
	return "Take Away"
}
