package core

// Suggestion lists offered by the entry forms. Stored categories and event
// types are free text and are not checked against these.
var (
	ExpenseCategories = []string{
		"Housing", "Food", "Transportation", "Utilities", "Entertainment",
		"Healthcare", "Shopping", "Education", "Travel", "Other",
	}
	IncomeCategories = []string{
		"Salary", "Freelance", "Investment", "Business", "Bonus", "Gift", "Rental", "Other",
	}
	EventTypes = []string{"general", "wedding", "birthday", "vacation", "business"}
)

// DefaultEventType is used when an event is created without a type.
const DefaultEventType = "general"

// CategoriesFor returns a copy of the suggestion list for t.
func CategoriesFor(t TransactionType) []string {
	var src []string
	switch t {
	case Income:
		src = IncomeCategories
	case Expense:
		src = ExpenseCategories
	}
	return append([]string(nil), src...)
}
