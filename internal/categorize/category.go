package categorize

import "fmt"

// Category is a spend category assigned to a line of invoice text
type Category string

const (
	Travel   Category = "travel"
	Food     Category = "food"
	Software Category = "software"
	Office   Category = "office"
	Other    Category = "other"
)

// categories is the closed category set in canonical report order
var categories = [...]Category{Travel, Food, Software, Office, Other}

// Categories returns the closed category set in canonical order
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

// Index returns the canonical position of the category, or -1 if it is not
// part of the closed set
func (c Category) Index() int {
	for i, cat := range categories {
		if cat == c {
			return i
		}
	}
	return -1
}

// Valid reports whether the category belongs to the closed set
func (c Category) Valid() bool {
	return c.Index() >= 0
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory converts a label into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
