package models

// Product is one entry from the upstream commerce catalog. The upstream
// payload is treated as opaque; only the fields the shop page lists are
// decoded.
type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Image       string   `json:"image,omitempty"`
	Permalink   string   `json:"permalink"`
	Categories  []string `json:"categories,omitempty"`
	InStock     bool     `json:"in_stock"`
	Description string   `json:"description,omitempty"`
}

// ProductFilter narrows down the catalog listing.
type ProductFilter struct {
	Category string
	Page     int
	PageSize int
}
