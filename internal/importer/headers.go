package importer

// Field is a canonical column name the classifier maps source columns onto.
type Field string

const (
	FieldSalesManName    Field = "Sales Man Name"
	FieldOutletName      Field = "Outlet Name"
	FieldBillDate        Field = "Bill Date"
	FieldNetAmount       Field = "Net Amount"
	FieldTotalSalesBills Field = "Total Sales Bills"

	FieldItemSalesMan Field = "SalesMan Name"
	FieldBillDt       Field = "Bill Dt."
	FieldItemName     Field = "Item Name"
	FieldItemAlias    Field = "Item Alias"
	FieldSoldQty      Field = "Sold Qty"
	FieldItemRate     Field = "Item Rate"

	FieldType                Field = "Type"
	FieldStoreName           Field = "Store Name"
	FieldStoreTarget         Field = "Store Target"
	FieldEmployeeName        Field = "Employee Name"
	FieldEmployeeStore       Field = "Employee Store"
	FieldEmployeeSalesTarget Field = "Employee Sales Target"
	FieldEmployeeDuvetTarget Field = "Employee Duvet Target"

	FieldDate     Field = "Date"
	FieldVisitors Field = "Visitors"
)

// RequiredFields are the canonical columns of each shape, in the order
// they appear in upload templates.
var RequiredFields = map[FileShape][]Field{
	ShapeEmployeeSales: {FieldSalesManName, FieldOutletName, FieldBillDate, FieldNetAmount, FieldTotalSalesBills},
	ShapeItemWiseSales: {FieldOutletName, FieldItemSalesMan, FieldBillDt, FieldItemName, FieldItemAlias, FieldSoldQty, FieldItemRate},
	ShapeInstall:       {FieldType, FieldStoreName, FieldStoreTarget, FieldEmployeeName, FieldEmployeeStore, FieldEmployeeSalesTarget, FieldEmployeeDuvetTarget},
	ShapeVisitors:      {FieldDate, FieldStoreName, FieldVisitors},
}

// Headers returns the canonical header names of a shape as strings.
func Headers(shape FileShape) []string {
	fields := RequiredFields[shape]
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// fieldAliases are extra source spellings tried after the classifier's
// mapping and the canonical name itself.
var fieldAliases = map[Field][]string{
	FieldSalesManName:        {"Salesman Name", "SalesMan Name", "Salesman", "Sales Man", "Employee", "Employee Name"},
	FieldItemSalesMan:        {"Sales Man Name", "Salesman Name", "Salesman", "Employee"},
	FieldOutletName:          {"Outlet", "Store", "Store Name", "Branch"},
	FieldBillDate:            {"Bill Dt.", "Bill Dt", "Date", "Invoice Date"},
	FieldBillDt:              {"Bill Date", "Bill Dt", "Date", "Invoice Date"},
	FieldNetAmount:           {"Net Sales", "Net Amt", "Total Sales", "Sales"},
	FieldTotalSalesBills:     {"Sales Bills", "Total Bills", "Bills", "Transactions", "Invoices"},
	FieldItemName:            {"Item", "Product", "Product Name"},
	FieldItemAlias:           {"Alias", "Item Code", "Code", "SKU"},
	FieldSoldQty:             {"Qty", "Quantity"},
	FieldItemRate:            {"Rate", "Price", "Unit Price"},
	FieldStoreName:           {"Store", "Outlet Name", "Outlet", "Branch"},
	FieldStoreTarget:         {"Target"},
	FieldEmployeeStore:       {"Outlet Name", "Store"},
	FieldEmployeeSalesTarget: {"Sales Target"},
	FieldEmployeeDuvetTarget: {"Duvet Target"},
	FieldDate:                {"Bill Date", "Day"},
	FieldVisitors:            {"Visitor Count", "Footfall", "Count"},
}

// HeaderMap maps canonical fields to source column names.
type HeaderMap map[Field]string

// aliases returns the lookup order for f: mapped column, canonical name,
// then static aliases.
func (h HeaderMap) aliases(f Field) []string {
	out := make([]string, 0, 2+len(fieldAliases[f]))
	if col := h[f]; col != "" {
		out = append(out, col)
	}
	out = append(out, string(f))
	return append(out, fieldAliases[f]...)
}
