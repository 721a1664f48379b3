package models

// Recognised dataset names.
const (
	DatasetCollections      = "collections"
	DatasetFinancials       = "financials"
	DatasetProperties       = "properties"
	DatasetChartOfAccounts  = "chart_of_accounts"
	DatasetGLTransactions   = "gl_transactions"
	DatasetBudgetMonthly    = "budget_monthly"
	DatasetCashflowItems    = "cashflow_items"
	DatasetOperationalKPIs  = "operational_kpis"
	DatasetModelAssumptions = "model_assumptions"
)

// Column names. They are exact, case-sensitive header strings.
const (
	// collections
	ColDate          = "Date"
	ColProperty      = "Property"
	ColRegion        = "Region"
	ColBilledRent    = "Billed Rent"
	ColCollectedRent = "Collected Rent"
	ColOccupancyPct  = "Occupancy %"
	ColCollectionPct = "Collection %"
	ColTotalUnits    = "Total Units"
	ColOccupiedUnits = "Occupied Units"

	// financials
	ColPeriod      = "Period"
	ColRevenue     = "Revenue"
	ColOpex        = "Operating Expenses"
	ColNOI         = "NOI"
	ColBudgetNOI   = "Budget NOI"
	ColNOIVariance = "NOI Variance"
	ColNOIMargin   = "NOI Margin"

	// properties
	ColAcquisitionDate = "Acquisition Date"
	ColCity            = "City"
	ColState           = "State"
	ColUnits           = "Units"
	ColLatestValue     = "Latest Value"

	// chart_of_accounts
	ColAccountNumber = "account_number"
	ColAccountName   = "account_name"
	ColAccountType   = "account_type"
	ColRatioGroup    = "ratio_group"
	ColReportClass   = "report_class"

	// gl_transactions, budget_monthly, cashflow_items, operational_kpis
	ColPeriodLower  = "period"
	ColAmount       = "amount"
	ColScenario     = "scenario"
	ColTxnDate      = "txn_date"
	ColBudgetAmount = "budget_amount"
	ColDateLower    = "date"
	ColItemType     = "item_type"
	ColMetricName   = "metric_name"
	ColMetricValue  = "metric_value"

	// model_assumptions
	ColAssumptionKey = "assumption_key"
	ColBaseValue     = "base_value"
)

// Chart-of-accounts classification values.
const (
	AccountTypeRevenue = "Revenue"
	AccountTypeCOGS    = "COGS"
	AccountTypeExpense = "Expense"

	RatioGroupOperatingExpenses = "Operating Expenses"
	RatioGroupBelowTheLine      = "Below-the-line"
)

// ScenarioActual is the default scenario tag of GL rows.
const ScenarioActual = "Actual"

// ItemTypeOpeningCash is the cashflow item type that resets the running balance.
const ItemTypeOpeningCash = "Opening Cash"
