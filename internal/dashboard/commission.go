package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"
)

// StoreCommissionRate is the store's rate as a fraction, by achievement
// percentage.
func StoreCommissionRate(achievement float64) decimal.Decimal {
	switch {
	case achievement >= 100:
		return decimal.RequireFromString("0.02")
	case achievement >= 90:
		return decimal.RequireFromString("0.01")
	case achievement >= 80:
		return decimal.RequireFromString("0.005")
	default:
		return decimal.Zero
	}
}

// EmployeeCommission is what one employee earns.
type EmployeeCommission struct {
	Name        string  `json:"name"`
	TotalSales  float64 `json:"totalSales"`
	Target      float64 `json:"target"`
	Achievement float64 `json:"achievement"`
	// Rate is the employee's final rate in percent.
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// StoreCommission groups a store's employees under its applicable rate.
type StoreCommission struct {
	Name        string               `json:"name"`
	Achievement float64              `json:"achievement"`
	Rate        float64              `json:"rate"`
	Employees   []EmployeeCommission `json:"employees"`
	Total       float64              `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// Commissions pays each employee the store rate scaled by the employee's
// own achievement. Employees of unknown stores earn nothing and are left
// out. Amounts are rounded to halalas.
func Commissions(stores []StoreSummary, employees map[string][]EmployeeSummary) []StoreCommission {
	var out []StoreCommission
	for _, st := range stores {
		list := employees[st.Name]
		if len(list) == 0 {
			continue
		}
		storeRate := StoreCommissionRate(st.TargetAchievement)
		sc := StoreCommission{
			Name:        st.Name,
			Achievement: st.TargetAchievement,
			Rate:        storeRate.Mul(hundred).InexactFloat64(),
		}
		total := decimal.Zero
		for _, e := range list {
			achievement := decimal.NewFromFloat(e.Achievement)
			rate := storeRate.Mul(achievement).Div(hundred)
			amount := decimal.NewFromFloat(e.TotalSales).Mul(rate).Round(2)
			total = total.Add(amount)
			sc.Employees = append(sc.Employees, EmployeeCommission{
				Name:        e.Name,
				TotalSales:  e.TotalSales,
				Target:      e.Target,
				Achievement: e.Achievement,
				Rate:        rate.Mul(hundred).Round(4).InexactFloat64(),
				Amount:      amount.InexactFloat64(),
			})
		}
		sc.Total = total.InexactFloat64()
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
