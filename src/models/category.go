package models

// Category is a chart-of-accounts bucket. The full category set is the
// closed universe of valid classification targets.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
}
