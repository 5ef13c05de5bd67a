package client

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const pantryProductsPath = "/api/pantry/products"

// PantryProduct is one product in the user's pantry.
type PantryProduct struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Category  string     `json:"unified_category"`
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// PantryProducts lists all pantry products.
func (c *Client) PantryProducts(ctx context.Context) ([]PantryProduct, error) {
	var resp struct {
		Products []PantryProduct `json:"products"`
	}
	if err := c.getJSON(ctx, pantryProductsPath, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// AddPantryProduct creates a product and returns it with its assigned ID.
func (c *Client) AddPantryProduct(ctx context.Context, p PantryProduct) (*PantryProduct, error) {
	var created PantryProduct
	if err := c.postJSON(ctx, pantryProductsPath, p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePantryProduct replaces the product with the given ID.
func (c *Client) UpdatePantryProduct(ctx context.Context, p PantryProduct) error {
	return c.putJSON(ctx, pantryProductsPath+"/"+p.ID.String(), p)
}

// DeletePantryProduct removes a product by ID.
func (c *Client) DeletePantryProduct(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, pantryProductsPath+"/"+id.String())
}
