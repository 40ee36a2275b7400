package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kha159-create/alsani-cockpit/internal/docstore"
)

var now = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func fixture() *Snapshot {
	return &Snapshot{
		Stores: []Store{
			{Name: "Riyadh", Target: 100000},
			{Name: "Jeddah", Target: 50000},
		},
		Employees: []Employee{
			{Name: "Ali", Store: "Riyadh", Target: 40000, DuvetTarget: 10},
			{Name: "Sara", Store: "Riyadh", Target: 20000},
			{Name: "Omar", Store: "Jeddah", Target: 30000},
			{Name: "", Store: "Jeddah"},
		},
		Metrics: []Metric{
			{Date: "2024-03-20", Store: "Riyadh", Employee: "Ali", TotalSales: 30000, TransactionCount: 60},
			{Date: "2024-03-02", Store: "Riyadh", Employee: "Sara", TotalSales: 25000, TransactionCount: 50},
			{Date: "2024-03-20", Store: "Riyadh", Visitors: 500},
			{Date: "2024-01-15", Store: "Jeddah", Employee: "Omar", TotalSales: 12000, TransactionCount: 40},
			{Date: "2023-03-20", Store: "Riyadh", TotalSales: 20000, TransactionCount: 40, Visitors: 400},
			{Date: "2023-03-05", Store: "Riyadh", TotalSales: 10000, TransactionCount: 10},
		},
		Products: []Sale{
			{Store: "Riyadh", Date: "2024-03-10", ItemName: "Hotel Pillow", Alias: "2001", Quantity: 3, Rate: 120, Amount: 360, Salesman: "Ali"},
			{Store: "Riyadh", Date: "2024-03-11", ItemName: "Topper Queen", Alias: "9300", Quantity: 1, Rate: 899, Amount: 899, Salesman: "Sara"},
			{Store: "Jeddah", Date: "2023-12-01", ItemName: "Hotel Pillow", Alias: "2001", Quantity: 2, Rate: 120, Amount: 240, Salesman: "Omar"},
		},
		Duvets: []Sale{
			{Store: "Riyadh", Date: "2024-03-12", ItemName: "King Duvet", Alias: "4501", Quantity: 2, Rate: 299, Amount: 598, Salesman: "Ali"},
			{Store: "Riyadh", Date: "2024-03-13", ItemName: "King Duvet Lux", Alias: "4502", Quantity: 1, Rate: 895, Amount: 895, Salesman: "Ali"},
			{Store: "", Date: "2024-03-13", ItemName: "Comforter", Alias: "4600", Quantity: 4, Rate: 450, Amount: 1800, Salesman: "Sara"},
			{Store: "Jeddah", Date: "2024-03-14", ItemName: "King Duvet", Alias: "4501", Quantity: 1, Rate: 595, Amount: 595, Salesman: "Omar"},
		},
	}
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]DateFilter{"": FilterAll, "ALL": FilterAll, "7d": FilterLast7Days, " mtd ": FilterMonthToDay, "ytd": FilterYearToDay} {
		got, err := ParseFilter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFilter("today")
	assert.Error(t, err)
}

func TestFilterApply(t *testing.T) {
	snap := fixture()

	assert.Same(t, snap, FilterAll.Apply(snap, now))

	mtd := FilterMonthToDay.Apply(snap, now)
	assert.Len(t, mtd.Metrics, 3)
	assert.Len(t, mtd.Products, 2)
	assert.Len(t, mtd.Duvets, 4)
	assert.Len(t, mtd.Stores, 2)

	week := FilterLast7Days.Apply(snap, now)
	assert.Len(t, week.Metrics, 2)
	assert.Empty(t, week.Products)

	ytd := FilterYearToDay.Apply(snap, now)
	assert.Len(t, ytd.Metrics, 4)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), FilterLast7Days.Start(now))
}

func TestOverview(t *testing.T) {
	ov := BuildOverview(FilterYearToDay.Apply(fixture(), now))

	require.Len(t, ov.Stores, 2)
	riyadh := ov.Stores[0]
	assert.Equal(t, "Riyadh", riyadh.Name)
	assert.Equal(t, 55000.0, riyadh.TotalSales)
	assert.Equal(t, 110.0, riyadh.TransactionCount)
	assert.Equal(t, 500.0, riyadh.Visitors)
	assert.Equal(t, 500.0, riyadh.ATV)
	assert.InDelta(t, 22.0, riyadh.VisitorRate, 1e-9)
	assert.Equal(t, 110.0, riyadh.SalesPerVisitor)
	assert.InDelta(t, 55.0, riyadh.TargetAchievement, 1e-9)

	assert.Equal(t, 67000.0, ov.KPI.TotalSales)
	assert.Equal(t, 150.0, ov.KPI.TotalTransactions)
	assert.InDelta(t, 30.0, ov.KPI.ConversionRate, 1e-9)

	require.Len(t, ov.Employees["Riyadh"], 2)
	assert.Equal(t, "Ali", ov.Employees["Riyadh"][0].Name)
	assert.Len(t, ov.Employees["Jeddah"], 1, "nameless employees are dropped")

	require.Len(t, ov.TopEmployees, 3)
	assert.Equal(t, "Sara", ov.TopEmployees[0].Name)
	assert.InDelta(t, 125.0, ov.TopEmployees[0].Achievement, 1e-9)
	assert.Equal(t, "Ali", ov.TopEmployees[1].Name)

	assert.Equal(t, []DaySales{
		{Date: "2024-01-15", Sales: 12000},
		{Date: "2024-03-02", Sales: 25000},
		{Date: "2024-03-20", Sales: 30000},
	}, ov.SalesOverTime)
}

func TestHeadlineEmpty(t *testing.T) {
	assert.Equal(t, KPI{}, Headline(nil))
}

func TestLikeForLike(t *testing.T) {
	lfl := LikeForLike(fixture().Metrics, "Riyadh", now)
	assert.Equal(t, "Riyadh", lfl.Store)

	assert.Equal(t, 30000.0, lfl.Today.Current.TotalSales)
	assert.Equal(t, 20000.0, lfl.Today.Previous.TotalSales)
	assert.InDelta(t, 50.0, lfl.Today.Change.TotalSales, 1e-9)

	assert.Equal(t, 55000.0, lfl.Month.Current.TotalSales)
	assert.Equal(t, 30000.0, lfl.Month.Previous.TotalSales)
	assert.Equal(t, 600.0, lfl.Month.Previous.ATV)

	all := LikeForLike(fixture().Metrics, "", now)
	assert.Equal(t, "All", all.Store)
	assert.Equal(t, 67000.0, all.Year.Current.TotalSales)
	assert.Zero(t, pctChange(5, 0))
}

func TestCategory(t *testing.T) {
	tests := []struct {
		name, alias, want string
	}{
		{"Anything", "9605", CategoryToppers},
		{"Hotel Pillow", "1", CategoryPillows},
		{"Silk Pillow Case", "2", CategoryOther},
		{"King DUVET", "4501", CategoryDuvets},
		{"Summer Comforter", "3", CategoryDuvets},
		{"Bed Sheet", "4", CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Category(tt.name, tt.alias), tt.name)
	}
}

func TestProducts(t *testing.T) {
	products := Products(fixture())
	require.Len(t, products, 5)
	assert.Equal(t, "2001", products[0].Alias)
	assert.Equal(t, 5.0, products[0].SoldQty)
	assert.Equal(t, 600.0, products[0].Amount)
	assert.Equal(t, CategoryPillows, products[0].Category)
	assert.Equal(t, "4600", products[1].Alias)

	cheap := FilterProducts(products, ProductFilter{PriceRange: "<150"})
	require.Len(t, cheap, 1)
	assert.Equal(t, "2001", cheap[0].Alias)

	duvets := FilterProducts(products, ProductFilter{Category: "duvets", Name: "king"})
	assert.Len(t, duvets, 2)

	assert.Len(t, FilterProducts(products, ProductFilter{Category: "All", PriceRange: ">500"}), 2)
	assert.Len(t, FilterProducts(products, ProductFilter{Alias: "45"}), 2)
}

func TestDuvetBands(t *testing.T) {
	tests := []struct {
		price float64
		band  string
		ok    bool
	}{
		{199, BandLow, true},
		{399, BandLow, true},
		{450, "", false},
		{495, BandMedium, true},
		{695, BandMedium, true},
		{795, BandHigh, true},
		{999, BandHigh, true},
		{1200, "", false},
	}
	for _, tt := range tests {
		band, ok := DuvetBand(tt.price)
		assert.Equal(t, tt.ok, ok, "price %v", tt.price)
		assert.Equal(t, tt.band, band, "price %v", tt.price)
	}
}

func TestDuvetsByStoreAndEmployee(t *testing.T) {
	snap := fixture()
	stores := DuvetsByStore(snap.Duvets)
	require.Len(t, stores, 2, "the comforter at 450 is outside every band")
	assert.Equal(t, "Jeddah", stores[0].Name)
	assert.Equal(t, 1.0, stores[0].Bands[BandMedium])
	assert.Equal(t, 3.0, stores[1].Total)
	assert.Equal(t, 2.0, stores[1].Bands[BandLow])

	ali := DuvetsForEmployee(snap.Duvets, snap.Employees[0])
	assert.Equal(t, 3.0, ali.Total)
	assert.InDelta(t, 30.0, ali.Achievement, 1e-9)
	assert.InDelta(t, 100.0/3, ali.Share[BandHigh], 1e-9)
	assert.Zero(t, ali.Bands[BandMedium])
}

func TestStoreDetail(t *testing.T) {
	d, err := BuildStoreDetail(fixture(), "Riyadh", now)
	require.NoError(t, err)
	assert.Equal(t, 30000.0, d.Today.TotalSales)
	assert.Equal(t, 55000.0, d.MTD.TotalSales)
	assert.Equal(t, 55000.0, d.YTD.TotalSales)
	assert.Equal(t, 85000.0, d.Store.TotalSales, "the store card covers every date")

	p := d.Progress
	assert.Equal(t, 12, p.RemainingDays)
	assert.Equal(t, 45000.0, p.RemainingTarget)
	assert.Equal(t, 35000.0, p.RemainingTarget90)
	assert.InDelta(t, 3750.0, p.RequiredDailyAverage, 1e-9)
	assert.InDelta(t, 35000.0/12, p.RequiredDailyAverage90, 1e-9)
	assert.InDelta(t, 55000.0/20*31, p.RunRate, 1e-9)

	_, err = BuildStoreDetail(fixture(), "Dammam", now)
	assert.Error(t, err)
}

func TestProgressTargetMet(t *testing.T) {
	p := Progress(1000, 1500, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, p.RemainingDays)
	assert.Equal(t, -500.0, p.RemainingTarget)
	assert.Zero(t, p.RequiredDailyAverage)
}

func TestCommissions(t *testing.T) {
	rateTests := []struct {
		achievement float64
		want        string
	}{
		{120, "0.02"}, {100, "0.02"}, {95, "0.01"}, {80, "0.005"}, {79.9, "0"},
	}
	for _, tt := range rateTests {
		assert.Equal(t, tt.want, StoreCommissionRate(tt.achievement).String())
	}

	stores := []StoreSummary{
		{Name: "Riyadh", TargetAchievement: 92},
		{Name: "Jeddah", TargetAchievement: 50},
		{Name: "Empty", TargetAchievement: 100},
	}
	employees := map[string][]EmployeeSummary{
		"Riyadh": {
			{Name: "Ali", TotalSales: 30000, Target: 40000, Achievement: 75},
			{Name: "Sara", TotalSales: 25000, Target: 20000, Achievement: 125},
		},
		"Jeddah": {{Name: "Omar", TotalSales: 12000, Achievement: 40}},
		"Ghost":  {{Name: "Nobody", TotalSales: 1}},
	}
	out := Commissions(stores, employees)
	require.Len(t, out, 2)

	assert.Equal(t, "Jeddah", out[0].Name)
	assert.Zero(t, out[0].Total)

	riyadh := out[1]
	assert.Equal(t, 1.0, riyadh.Rate)
	require.Len(t, riyadh.Employees, 2)
	assert.Equal(t, 0.75, riyadh.Employees[0].Rate)
	assert.Equal(t, 225.0, riyadh.Employees[0].Amount)
	assert.Equal(t, 1.25, riyadh.Employees[1].Rate)
	assert.Equal(t, 312.5, riyadh.Employees[1].Amount)
	assert.Equal(t, 537.5, riyadh.Total)
}

func TestCoaching(t *testing.T) {
	c := Coaching(EmployeeSummary{Name: "Ali", TotalSales: 30000, TotalTransactions: 60})
	assert.Equal(t, 500.0, c.ATV)
	assert.Equal(t, 31500.0, c.BoostedSales)

	assert.Zero(t, Coaching(EmployeeSummary{Name: "New"}).BoostedSales)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, docstore.Stores, "s1", map[string]any{"name": "Riyadh", "target": 100000}, false))
	require.NoError(t, store.Set(ctx, docstore.Employees, "e1", map[string]any{"name": "Ali", "store": "Riyadh", "target": 1000}, false))
	_, err := store.Add(ctx, docstore.DailyMetrics, map[string]any{"date": "2024-03-01", "store": "Riyadh", "totalSales": 10, "transactionCount": 1})
	require.NoError(t, err)
	_, err = store.Add(ctx, docstore.DailyMetrics, map[string]any{"date": 20240301, "store": "Riyadh"})
	require.NoError(t, err)
	_, err = store.Add(ctx, docstore.KingDuvetSales, map[string]any{"Item Alias": "4501", "Sold Qty": 2, "Item Rate": 299, "Outlet Name": "Riyadh"})
	require.NoError(t, err)

	snap, err := Load(ctx, store)
	require.NoError(t, err)
	require.Len(t, snap.Stores, 1)
	assert.Equal(t, "s1", snap.Stores[0].ID)
	assert.Len(t, snap.Metrics, 1, "undecodable documents are skipped")
	require.Len(t, snap.Duvets, 1)
	assert.Equal(t, 2.0, snap.Duvets[0].Quantity)
	assert.Equal(t, "Ali", snap.Employees[0].Name)
}
