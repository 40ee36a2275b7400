package importer

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/numfmt"
)

// recordNamespace seeds the deterministic IDs of upserted records.
var recordNamespace = uuid.MustParse("6f1c2a8e-4b7d-4c1e-9a53-2d7e0c8b91f4")

// Summary is the operator-facing description of one accepted row.
type Summary struct {
	DataType string `json:"dataType"`
	Name     string `json:"name"`
	Value    string `json:"value"`
}

// NormalizedRecord is a validated row ready to be written. The set of
// implementations is closed to this package.
type NormalizedRecord interface {
	Collection() string
	// DocID is empty for plain inserts and a stable key for upserts.
	DocID() string
	Merge() bool
	Fields() map[string]any
	Summary() Summary
	isRecord()
}

func stableID(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return uuid.NewSHA1(recordNamespace, []byte(strings.Join(parts, "|"))).String()
}

// DailyMetric is one employee's sales for one day at one store.
type DailyMetric struct {
	Date             string
	Store            string
	Employee         string
	TotalSales       float64
	TransactionCount float64
}

func (DailyMetric) Collection() string { return docstore.DailyMetrics }
func (DailyMetric) DocID() string      { return "" }
func (DailyMetric) Merge() bool        { return false }
func (DailyMetric) isRecord()          {}

func (r DailyMetric) Fields() map[string]any {
	return map[string]any{
		"date":             r.Date,
		"store":            r.Store,
		"employee":         r.Employee,
		"totalSales":       r.TotalSales,
		"transactionCount": r.TransactionCount,
	}
}

func (r DailyMetric) Summary() Summary {
	return Summary{DataType: "Employee Daily Sales", Name: r.Employee, Value: "Sales: " + numfmt.Format(r.TotalSales)}
}

// ProductSale is one invoice line.
type ProductSale struct {
	Store    string
	Date     string
	ItemName string
	Alias    string
	Quantity float64
	Rate     float64
	Salesman string
	// Amount is Quantity × Rate, rounded to halalas.
	Amount float64
	// Destination is the collection chosen by the item router.
	Destination string
}

func newProductSale(store, date, item, alias, salesman string, qty, rate float64, router ItemRouter) ProductSale {
	amount, _ := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(rate)).Round(2).Float64()
	return ProductSale{
		Store:       store,
		Date:        date,
		ItemName:    item,
		Alias:       alias,
		Quantity:    qty,
		Rate:        rate,
		Salesman:    salesman,
		Amount:      amount,
		Destination: router.Route(alias),
	}
}

func (r ProductSale) Collection() string { return r.Destination }
func (ProductSale) DocID() string        { return "" }
func (ProductSale) Merge() bool          { return false }
func (ProductSale) isRecord()            {}

// Fields keeps the spreadsheet column names, which the dashboard reads.
func (r ProductSale) Fields() map[string]any {
	return map[string]any{
		"Outlet Name":   r.Store,
		"Bill Dt.":      r.Date,
		"Item Name":     r.ItemName,
		"Item Alias":    r.Alias,
		"Sold Qty":      r.Quantity,
		"Item Rate":     r.Rate,
		"SalesMan Name": r.Salesman,
		"Item Net Amt":  r.Amount,
	}
}

func (r ProductSale) Summary() Summary {
	return Summary{DataType: "Product Sale", Name: r.ItemName, Value: "Qty: " + numfmt.Format(r.Quantity)}
}

// EmployeeInstall sets an employee's store and monthly targets.
type EmployeeInstall struct {
	Name        string
	Store       string
	SalesTarget float64
	DuvetTarget float64
}

func (EmployeeInstall) Collection() string { return docstore.Employees }
func (r EmployeeInstall) DocID() string    { return stableID("employee", r.Name) }
func (EmployeeInstall) Merge() bool        { return true }
func (EmployeeInstall) isRecord()          {}

func (r EmployeeInstall) Fields() map[string]any {
	return map[string]any{
		"name":        r.Name,
		"store":       r.Store,
		"target":      r.SalesTarget,
		"duvetTarget": r.DuvetTarget,
	}
}

func (r EmployeeInstall) Summary() Summary {
	return Summary{DataType: "Employee Install", Name: r.Name, Value: "Sales Target: " + numfmt.Format(r.SalesTarget)}
}

// StoreInstall sets a store's monthly target.
type StoreInstall struct {
	Name   string
	Target float64
}

func (StoreInstall) Collection() string { return docstore.Stores }
func (r StoreInstall) DocID() string    { return stableID("store", r.Name) }
func (StoreInstall) Merge() bool        { return true }
func (StoreInstall) isRecord()          {}

func (r StoreInstall) Fields() map[string]any {
	return map[string]any{"name": r.Name, "target": r.Target}
}

func (r StoreInstall) Summary() Summary {
	return Summary{DataType: "Store Install", Name: r.Name, Value: "Target: " + numfmt.Format(r.Target)}
}

// VisitorRecord is a store's footfall for one day. It is merged into the
// day's metrics document for that store.
type VisitorRecord struct {
	Date     string
	Store    string
	Visitors float64
}

func (VisitorRecord) Collection() string { return docstore.DailyMetrics }
func (r VisitorRecord) DocID() string    { return stableID("visitors", r.Date, r.Store) }
func (VisitorRecord) Merge() bool        { return true }
func (VisitorRecord) isRecord()          {}

func (r VisitorRecord) Fields() map[string]any {
	return map[string]any{"date": r.Date, "store": r.Store, "visitors": r.Visitors}
}

func (r VisitorRecord) Summary() Summary {
	return Summary{DataType: "Daily Visitors", Name: r.Store, Value: numfmt.Format(r.Visitors) + " visitors on " + r.Date}
}

// EmployeeID and StoreID expose the upsert keys so manual edits land on
// the same documents as imports.
func EmployeeID(name string) string { return stableID("employee", name) }
func StoreID(name string) string    { return stableID("store", name) }

// ProductID keys catalog entries by item alias.
func ProductID(alias string) string { return stableID("product", alias) }

// addToBatch queues the record's write.
func addToBatch(b *docstore.Batch, r NormalizedRecord) {
	if id := r.DocID(); id != "" {
		b.Set(r.Collection(), id, r.Fields(), r.Merge())
		return
	}
	b.Add(r.Collection(), r.Fields())
}
