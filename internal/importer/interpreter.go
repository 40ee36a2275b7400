package importer

import "strings"

// Verdict is what the interpreter decided about one row.
type Verdict int

const (
	// Skip: the row lacked something it needed. Counted.
	Skip Verdict = iota
	// Emit: the row produced a record.
	Emit
	// Consume: the row only updated interpreter state (a grouped salesman
	// label). Neither emitted nor counted as skipped.
	Consume
)

// Interpreter turns rows into records for one upload. It is not safe for
// concurrent use.
type Interpreter struct {
	shape   FileShape
	layout  Layout
	headers HeaderMap
	router  ItemRouter

	currentSalesman string
}

// NewInterpreter builds an interpreter for a classified upload. A nil
// router uses DefaultRouter.
func NewInterpreter(shape FileShape, layout Layout, headers HeaderMap, router ItemRouter) *Interpreter {
	if router == nil {
		router = DefaultRouter
	}
	if headers == nil {
		headers = HeaderMap{}
	}
	return &Interpreter{shape: shape, layout: layout, headers: headers, router: router}
}

// Reset clears the carried-forward salesman.
func (in *Interpreter) Reset() { in.currentSalesman = "" }

// CurrentSalesman returns the salesman carried forward in a grouped file.
func (in *Interpreter) CurrentSalesman() string { return in.currentSalesman }

func (in *Interpreter) text(row Row, f Field) (string, bool) {
	return lookupText(row, in.headers.aliases(f)...)
}

func (in *Interpreter) number(row Row, f Field) (float64, bool) {
	return lookupNumber(row, in.headers.aliases(f)...)
}

func (in *Interpreter) date(row Row, f Field) (string, bool) {
	v, ok := Lookup(row, in.headers.aliases(f)...)
	if !ok {
		return "", false
	}
	return NormalizeDate(v)
}

// Interpret applies the rules of the upload's shape to one row.
func (in *Interpreter) Interpret(row Row) (NormalizedRecord, Verdict) {
	switch in.shape {
	case ShapeEmployeeSales:
		if in.layout == LayoutGrouped {
			return in.groupedSales(row)
		}
		return in.flatSales(row)
	case ShapeItemWiseSales:
		return in.itemSale(row)
	case ShapeInstall:
		return in.install(row)
	case ShapeVisitors:
		return in.visitors(row)
	default:
		return nil, Skip
	}
}

func (in *Interpreter) flatSales(row Row) (NormalizedRecord, Verdict) {
	salesman, ok1 := in.text(row, FieldSalesManName)
	outlet, ok2 := in.text(row, FieldOutletName)
	if !ok1 || !ok2 {
		return nil, Skip
	}
	return in.dailyMetric(row, salesman, outlet)
}

func (in *Interpreter) groupedSales(row Row) (NormalizedRecord, Verdict) {
	salesman, hasSalesman := in.text(row, FieldSalesManName)
	if hasSalesman && !strings.Contains(strings.ToLower(salesman), "total") {
		in.currentSalesman = salesman
		return nil, Consume
	}
	outlet, hasOutlet := in.text(row, FieldOutletName)
	if hasSalesman || !hasOutlet || in.currentSalesman == "" {
		return nil, Skip
	}
	return in.dailyMetric(row, in.currentSalesman, outlet)
}

func (in *Interpreter) dailyMetric(row Row, salesman, outlet string) (NormalizedRecord, Verdict) {
	amount, ok1 := in.number(row, FieldNetAmount)
	bills, ok2 := in.number(row, FieldTotalSalesBills)
	date, ok3 := in.date(row, FieldBillDate)
	if !ok1 || !ok2 || !ok3 {
		return nil, Skip
	}
	return DailyMetric{
		Date:             date,
		Store:            outlet,
		Employee:         salesman,
		TotalSales:       amount,
		TransactionCount: bills,
	}, Emit
}

func (in *Interpreter) itemSale(row Row) (NormalizedRecord, Verdict) {
	outlet, ok1 := in.text(row, FieldOutletName)
	salesman, ok2 := in.text(row, FieldItemSalesMan)
	item, ok3 := in.text(row, FieldItemName)
	date, ok4 := in.date(row, FieldBillDt)
	alias, ok5 := in.text(row, FieldItemAlias)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, Skip
	}
	qty, ok := in.number(row, FieldSoldQty)
	if !ok {
		qty = 1
	}
	rate, _ := in.number(row, FieldItemRate)
	return newProductSale(outlet, date, item, alias, salesman, qty, rate, in.router), Emit
}

func (in *Interpreter) install(row Row) (NormalizedRecord, Verdict) {
	kind, _ := in.text(row, FieldType)
	kind = strings.ToLower(kind)

	name, hasName := in.text(row, FieldEmployeeName)
	store, hasStore := in.text(row, FieldEmployeeStore)
	target, hasTarget := in.number(row, FieldEmployeeSalesTarget)

	if kind == "employee" || (hasName && hasStore && hasTarget) {
		if !hasName || !hasStore || !hasTarget {
			return nil, Skip
		}
		duvet, _ := in.number(row, FieldEmployeeDuvetTarget)
		return EmployeeInstall{Name: name, Store: store, SalesTarget: target, DuvetTarget: duvet}, Emit
	}

	if kind == "store" {
		storeName, ok1 := in.text(row, FieldStoreName)
		storeTarget, ok2 := in.number(row, FieldStoreTarget)
		if ok1 && ok2 {
			return StoreInstall{Name: storeName, Target: storeTarget}, Emit
		}
	}
	return nil, Skip
}

func (in *Interpreter) visitors(row Row) (NormalizedRecord, Verdict) {
	store, ok1 := in.text(row, FieldStoreName)
	date, ok2 := in.date(row, FieldDate)
	count, ok3 := in.number(row, FieldVisitors)
	if !ok1 || !ok2 || !ok3 {
		return nil, Skip
	}
	return VisitorRecord{Date: date, Store: store, Visitors: count}, Emit
}
