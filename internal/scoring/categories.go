package scoring

import "strings"

// Category is one of the fixed rating dimensions a staff member is scored on.
type Category string

const (
	CategoryTime             Category = "time"
	CategoryCreativity       Category = "creativity"
	CategoryShelfCleanliness Category = "shelf_cleanliness"
	CategoryStockManagement  Category = "stock_management"
	CategoryCustomerService  Category = "customer_service"
	CategoryDisciplineCases  Category = "discipline_cases"
	CategoryPersonalGrooming Category = "personal_grooming"
)

var categories = []Category{
	CategoryTime,
	CategoryCreativity,
	CategoryShelfCleanliness,
	CategoryStockManagement,
	CategoryCustomerService,
	CategoryDisciplineCases,
	CategoryPersonalGrooming,
}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory resolves a category name, ignoring case and surrounding spaces.
func ParseCategory(name string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(name)))
	for _, c := range categories {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}
