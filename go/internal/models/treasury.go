package models

// BudgetCategory is one of the closed set of treasury spending
// categories players vote funds toward.
type BudgetCategory string

const (
	CategoryEducation      BudgetCategory = "education"
	CategoryHealthcare     BudgetCategory = "healthcare"
	CategoryInfrastructure BudgetCategory = "infrastructure"
	CategoryHousing        BudgetCategory = "housing"
	CategoryCulture        BudgetCategory = "culture"
	CategoryRecreation     BudgetCategory = "recreation"
	CategoryCommercial     BudgetCategory = "commercial"
	CategoryCivic          BudgetCategory = "civic"
	CategoryEmergency      BudgetCategory = "emergency"
	CategoryUBI            BudgetCategory = "ubi"
)

// BudgetCategories lists every valid category in display order.
var BudgetCategories = []BudgetCategory{
	CategoryEducation,
	CategoryHealthcare,
	CategoryInfrastructure,
	CategoryHousing,
	CategoryCulture,
	CategoryRecreation,
	CategoryCommercial,
	CategoryCivic,
	CategoryEmergency,
	CategoryUBI,
}

// ValidCategory reports whether c is a known budget category.
func ValidCategory(c BudgetCategory) bool {
	for _, known := range BudgetCategories {
		if c == known {
			return true
		}
	}
	return false
}

// TreasurySnapshot is the wire representation of the treasury.
type TreasurySnapshot struct {
	TaxRate          float64                    `json:"tax_rate"`
	Balance          float64                    `json:"balance"`
	MonthlyCollected float64                    `json:"monthly_collected"`
	TotalDistributed float64                    `json:"total_distributed"`
	Allocations      map[BudgetCategory]float64 `json:"allocations"`
	VoteAllocations  map[BudgetCategory]int     `json:"vote_allocations"`
}
