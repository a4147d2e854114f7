// Package catalog is the static registry of block categories and the options
// available within each one. It is never mutated at runtime.
package catalog

import (
	"fmt"
	"strings"

	"sellerops/internal/models"
)

// entry describes one category: its options in presentation order and the
// descriptive default names for the options that have one.
type entry struct {
	options      []string
	defaultNames map[string]string
}

var categories = []models.Category{
	models.CategoryCollect,
	models.CategoryThink,
	models.CategoryAct,
	models.CategoryAgent,
}

var registry = map[models.Category]entry{
	models.CategoryCollect: {
		options: []string{"Marketplace Data", "Upload Sheet", "Upload Document", "Competitor Prices", "Customer Reviews"},
		defaultNames: map[string]string{
			"Marketplace Data":  "Pull marketplace sales data",
			"Upload Sheet":      "Import data from a spreadsheet",
			"Competitor Prices": "Track competitor pricing",
			"Customer Reviews":  "Gather recent customer reviews",
		},
	},
	models.CategoryThink: {
		options: []string{"Analyze Trends", "Forecast Demand", "Compare Competitors", "Summarize Findings"},
		defaultNames: map[string]string{
			"Analyze Trends":      "Analyze sales trends",
			"Forecast Demand":     "Forecast upcoming demand",
			"Compare Competitors": "Compare against competitors",
		},
	},
	models.CategoryAct: {
		options: []string{"Update Prices", "Adjust Inventory", "Generate Report", "Send Notification"},
		defaultNames: map[string]string{
			"Update Prices":     "Apply price changes",
			"Adjust Inventory":  "Adjust inventory levels",
			"Generate Report":   "Generate a performance report",
			"Send Notification": "Notify the team",
		},
	},
	models.CategoryAgent: {
		options: []string{"Custom Agent", "Pricing Agent", "Listing Agent", "Support Agent"},
		defaultNames: map[string]string{
			"Custom Agent":  "Run a custom agent",
			"Pricing Agent": "Let the pricing agent optimize prices",
			"Listing Agent": "Let the listing agent improve listings",
		},
	},
}

// Categories returns every known category in catalog order
func Categories() []models.Category {
	return append([]models.Category(nil), categories...)
}

// ParseCategory converts a string into a known category
func ParseCategory(s string) (models.Category, bool) {
	c := models.Category(strings.ToLower(strings.TrimSpace(s)))
	_, ok := registry[c]
	return c, ok
}

// OptionsFor returns the options available for a category.
// Unknown categories yield an empty list.
func OptionsFor(category models.Category) []string {
	e, ok := registry[category]
	if !ok {
		return []string{}
	}
	return append([]string(nil), e.options...)
}

// FirstOption returns the default option used when a block is added
func FirstOption(category models.Category) (string, bool) {
	e, ok := registry[category]
	if !ok || len(e.options) == 0 {
		return "", false
	}
	return e.options[0], true
}

// HasOption reports whether option belongs to category
func HasOption(category models.Category, option string) bool {
	e, ok := registry[category]
	if !ok {
		return false
	}
	for _, o := range e.options {
		if o == option {
			return true
		}
	}
	return false
}

// DefaultName returns the human-readable name for a block, falling back to
// "{Category} {Option}" when the table has no entry.
func DefaultName(category models.Category, option string) string {
	if e, ok := registry[category]; ok {
		if name, ok := e.defaultNames[option]; ok {
			return name
		}
	}
	return fmt.Sprintf("%s %s", titleCase(string(category)), option)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
