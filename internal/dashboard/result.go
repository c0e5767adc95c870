package dashboard

// Chart colours shared with the web templates.
const (
	IncomeColor  = "#10b981"
	ExpenseColor = "#ef4444"
)

// UpdatedAtLayout formats the freshness timestamp.
const UpdatedAtLayout = "02/01/2006 15:04"

type (
	// Result is everything the dashboard page renders. All amounts are
	// rounded to two decimals.
	Result struct {
		Balance      float64 `json:"balance"`
		TotalIncome  float64 `json:"total_income"`
		TotalExpense float64 `json:"total_expense"`
		IncomeCount  int     `json:"income_count"`
		ExpenseCount int     `json:"expense_count"`

		Recent     []Item          `json:"recent"`
		Categories CategorySummary `json:"categories"`
		Stats      Stats           `json:"stats"`
		Charts     Charts          `json:"charts"`

		Filters          AppliedFilters `json:"filters"`
		StartDate        string         `json:"start_date"`
		EndDate          string         `json:"end_date"`
		SelectedCategory string         `json:"selected_category"`

		UpdatedAt string `json:"updated_at"`

		// DataUnavailable is set when the store could not be read, so an
		// empty dashboard can be told apart from a user with no records.
		DataUnavailable bool `json:"data_unavailable"`
	}

	// Item is one transaction formatted for display.
	Item struct {
		ID          string  `json:"id,omitempty"`
		Kind        string  `json:"kind"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Date        string  `json:"date"`
		DateISO     string  `json:"date_iso"`

		DestinationAccount string `json:"destination_account,omitempty"`
		PaymentMethod      string `json:"payment_method,omitempty"`
		Merchant           string `json:"merchant,omitempty"`
	}

	IncomeCategory struct {
		Category string  `json:"category"`
		Value    float64 `json:"value"`
	}

	ExpenseCategory struct {
		Category   string  `json:"category"`
		Value      float64 `json:"value"`
		Percentage float64 `json:"percentage"`
	}

	CategorySummary struct {
		Income  []IncomeCategory  `json:"income"`
		Expense []ExpenseCategory `json:"expense"`
	}

	Stats struct {
		Mean  float64 `json:"mean"`
		Max   float64 `json:"max"`
		Min   float64 `json:"min"`
		Count int     `json:"count"`
	}

	PairSeries struct {
		Labels []string  `json:"labels"`
		Data   []float64 `json:"data"`
		Colors []string  `json:"colors"`
	}

	CategorySeries struct {
		Labels []string  `json:"labels"`
		Data   []float64 `json:"data"`
		Color  string    `json:"color"`
	}

	Charts struct {
		IncomeVsExpense   PairSeries     `json:"income_vs_expense"`
		ExpenseByCategory CategorySeries `json:"expense_by_category"`
		IncomeByCategory  CategorySeries `json:"income_by_category"`
	}
)

// emptyResult is the zero dashboard: every list is non-nil so templates and
// JSON consumers never see null.
func emptyResult() Result {
	return Result{
		Recent: []Item{},
		Categories: CategorySummary{
			Income:  []IncomeCategory{},
			Expense: []ExpenseCategory{},
		},
		Charts: emptyCharts(),
	}
}

func emptyCharts() Charts {
	return Charts{
		IncomeVsExpense: PairSeries{
			Labels: []string{"Income", "Expense"},
			Data:   []float64{0, 0},
			Colors: []string{IncomeColor, ExpenseColor},
		},
		ExpenseByCategory: CategorySeries{Labels: []string{}, Data: []float64{}, Color: ExpenseColor},
		IncomeByCategory:  CategorySeries{Labels: []string{}, Data: []float64{}, Color: IncomeColor},
	}
}

// clone deep-copies the slices of r.
func (r Result) clone() Result {
	c := r
	c.Recent = append([]Item{}, r.Recent...)
	c.Categories.Income = append([]IncomeCategory{}, r.Categories.Income...)
	c.Categories.Expense = append([]ExpenseCategory{}, r.Categories.Expense...)
	c.Charts = r.Charts.clone()
	return c
}

func (c Charts) clone() Charts {
	out := c
	out.IncomeVsExpense.Labels = append([]string{}, c.IncomeVsExpense.Labels...)
	out.IncomeVsExpense.Data = append([]float64{}, c.IncomeVsExpense.Data...)
	out.IncomeVsExpense.Colors = append([]string{}, c.IncomeVsExpense.Colors...)
	out.ExpenseByCategory.Labels = append([]string{}, c.ExpenseByCategory.Labels...)
	out.ExpenseByCategory.Data = append([]float64{}, c.ExpenseByCategory.Data...)
	out.IncomeByCategory.Labels = append([]string{}, c.IncomeByCategory.Labels...)
	out.IncomeByCategory.Data = append([]float64{}, c.IncomeByCategory.Data...)
	return out
}
