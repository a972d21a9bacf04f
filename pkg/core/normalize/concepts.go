package normalize

import "annualcompare/pkg/core/statement"

// Concept is a canonical financial statement line item. Ratio formulas are
// written against these names, never against filing wording.
type Concept string

const (
	Revenue                  Concept = "Revenue"
	COGS                     Concept = "COGS"
	GrossProfit              Concept = "GrossProfit"
	OperatingIncome          Concept = "OperatingIncome"
	NetIncome                Concept = "NetIncome"
	DepreciationAmortization Concept = "DepreciationAmortization"
	InterestExpense          Concept = "InterestExpense"
	IncomeTaxExpense         Concept = "IncomeTaxExpense"
	TotalAssets              Concept = "TotalAssets"
	TotalLiabilities         Concept = "TotalLiabilities"
	TotalEquity              Concept = "TotalEquity"
	Inventory                Concept = "Inventory"
	AccountsReceivable       Concept = "AccountsReceivable"
	OperatingCashFlow        Concept = "OperatingCashFlow"
	CapEx                    Concept = "CapEx"
)

// conceptEntry binds a filing label to a concept, restricted to the
// statement type the label belongs on. "Total assets" on an income
// statement table is a misclassification, not a match.
type conceptEntry struct {
	concept   Concept
	statement statement.Type
}

// defaultDictionary maps known filing labels, Traditional Chinese and
// English, to canonical concepts. Lookups lowercase the label first.
var defaultDictionary = map[string]conceptEntry{
	// Income statement.
	"營業收入":      {Revenue, statement.Income},
	"营业收入":      {Revenue, statement.Income},
	"營業收入淨額":    {Revenue, statement.Income},
	"營業收入合計":    {Revenue, statement.Income},
	"revenue":   {Revenue, statement.Income},
	"revenues":  {Revenue, statement.Income},
	"net sales": {Revenue, statement.Income},
	"net revenue": {Revenue, statement.Income},
	"total revenue": {Revenue, statement.Income},

	"營業成本":               {COGS, statement.Income},
	"营业成本":               {COGS, statement.Income},
	"銷貨成本":               {COGS, statement.Income},
	"cost of goods sold": {COGS, statement.Income},
	"cost of revenue":    {COGS, statement.Income},
	"cost of sales":      {COGS, statement.Income},

	"營業毛利":         {GrossProfit, statement.Income},
	"毛利":           {GrossProfit, statement.Income},
	"gross profit": {GrossProfit, statement.Income},
	"gross margin": {GrossProfit, statement.Income},

	"營業利益":             {OperatingIncome, statement.Income},
	"營業淨利":             {OperatingIncome, statement.Income},
	"operating income": {OperatingIncome, statement.Income},
	"income from operations": {OperatingIncome, statement.Income},
	"operating profit": {OperatingIncome, statement.Income},

	"本期淨利":       {NetIncome, statement.Income},
	"本期净利":       {NetIncome, statement.Income},
	"稅後淨利":       {NetIncome, statement.Income},
	"net income": {NetIncome, statement.Income},
	"net profit": {NetIncome, statement.Income},
	"profit for the year": {NetIncome, statement.Income},

	"折舊及攤銷":                        {DepreciationAmortization, statement.Income},
	"折舊與攤銷":                        {DepreciationAmortization, statement.Income},
	"depreciation and amortization": {DepreciationAmortization, statement.Income},

	"利息費用":             {InterestExpense, statement.Income},
	"interest expense": {InterestExpense, statement.Income},

	"所得稅費用":              {IncomeTaxExpense, statement.Income},
	"income tax expense": {IncomeTaxExpense, statement.Income},
	"provision for income taxes": {IncomeTaxExpense, statement.Income},

	// Balance sheet.
	"資產總額":         {TotalAssets, statement.Balance},
	"資產總計":         {TotalAssets, statement.Balance},
	"總資產":          {TotalAssets, statement.Balance},
	"total assets": {TotalAssets, statement.Balance},

	"負債總額":              {TotalLiabilities, statement.Balance},
	"負債總計":              {TotalLiabilities, statement.Balance},
	"total liabilities": {TotalLiabilities, statement.Balance},

	"股東權益":                  {TotalEquity, statement.Balance},
	"權益總額":                  {TotalEquity, statement.Balance},
	"權益總計":                  {TotalEquity, statement.Balance},
	"shareholders' equity":  {TotalEquity, statement.Balance},
	"stockholders' equity":  {TotalEquity, statement.Balance},
	"total equity":          {TotalEquity, statement.Balance},
	"total shareholders' equity": {TotalEquity, statement.Balance},

	"存貨":          {Inventory, statement.Balance},
	"存货":          {Inventory, statement.Balance},
	"inventory":   {Inventory, statement.Balance},
	"inventories": {Inventory, statement.Balance},

	"應收帳款":                     {AccountsReceivable, statement.Balance},
	"應收票據及帳款":                  {AccountsReceivable, statement.Balance},
	"accounts receivable":      {AccountsReceivable, statement.Balance},
	"accounts receivable, net": {AccountsReceivable, statement.Balance},

	// Cash flow statement.
	"營業活動之淨現金流入":                     {OperatingCashFlow, statement.CashFlow},
	"營業活動現金流量":                       {OperatingCashFlow, statement.CashFlow},
	"net cash provided by operating activities": {OperatingCashFlow, statement.CashFlow},
	"cash flows from operating activities":      {OperatingCashFlow, statement.CashFlow},

	"購置不動產、廠房及設備":          {CapEx, statement.CashFlow},
	"取得不動產、廠房及設備":          {CapEx, statement.CashFlow},
	"capital expenditures": {CapEx, statement.CashFlow},
	"purchases of property and equipment":           {CapEx, statement.CashFlow},
	"purchases of property, plant and equipment":    {CapEx, statement.CashFlow},
}
