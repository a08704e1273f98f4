package export

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a group of client data output
type Category string

// Client data categories, matching the --items values
const (
	CategoryAccounts    Category = "accounts"
	CategoryAttributes  Category = "attributes"
	CategoryConnections Category = "connections"
	CategoryBalances    Category = "balances"
	CategoryPayments    Category = "payments"
)

// AllCategories lists categories in pipeline order
var AllCategories = []Category{
	CategoryAccounts, CategoryAttributes, CategoryConnections, CategoryBalances, CategoryPayments,
}

// Categories is a set of requested categories
type Categories map[Category]struct{}

// NewCategories builds a set; no arguments selects every category
func NewCategories(items ...Category) Categories {
	if len(items) == 0 {
		items = AllCategories
	}
	set := make(Categories, len(items))
	for _, c := range items {
		set[c] = struct{}{}
	}
	return set
}

// ParseCategories parses category names, an empty list selects every category
func ParseCategories(names []string) (Categories, error) {
	items := make([]Category, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c := Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown export item %q", name)
		}
		items = append(items, c)
	}
	return NewCategories(items...), nil
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Has reports whether the category is requested
func (s Categories) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// String lists the set sorted and comma separated
func (s Categories) String() string {
	names := make([]string, 0, len(s))
	for c := range s {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
