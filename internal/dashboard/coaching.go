package dashboard

// ATVBoost is the ticket increase used in the coaching scenario.
const ATVBoost = 25

// CoachingScenario is what an employee's sales would be with a bigger
// average ticket on the same number of bills.
type CoachingScenario struct {
	Name              string  `json:"name"`
	TotalSales        float64 `json:"totalSales"`
	TotalTransactions float64 `json:"totalTransactions"`
	ATV               float64 `json:"atv"`
	BoostedSales      float64 `json:"boostedSales"`
}

// Coaching builds the scenario for an employee summary.
func Coaching(e EmployeeSummary) CoachingScenario {
	atv := ratio(e.TotalSales, e.TotalTransactions)
	return CoachingScenario{
		Name:              e.Name,
		TotalSales:        e.TotalSales,
		TotalTransactions: e.TotalTransactions,
		ATV:               atv,
		BoostedSales:      (atv + ATVBoost) * e.TotalTransactions,
	}
}
