package peers

import (
	"context"
	"fmt"
	"time"
)

// Product is the catalog view of a product as served by the product service.
type Product struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	QuantityInStock int64  `json:"quantity_in_stock"`
	Active          bool   `json:"active"`
}

// ProductCatalog reads products from the product service. Price and stock
// must be live, so there is no local replica: staleness here would let an
// order form against numbers the ledger never had.
type ProductCatalog struct {
	Client *Client
}

func NewProductCatalog(baseURL string) *ProductCatalog {
	return &ProductCatalog{Client: New("products", baseURL, 30*time.Second)}
}

func (c *ProductCatalog) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	if err := c.Client.getJSON(ctx, fmt.Sprintf("/products/%d", id), &p); err != nil {
		return Product{}, err
	}
	return p, nil
}
