package checkout

import (
	"context"
	"log"
)

// ProductDirectory looks up the backend's canonical product id by display
// name. Implemented by the commerce client.
type ProductDirectory interface {
	LookupProductID(ctx context.Context, name string) (int, error)
}

// ProductResolver maps a cart line's internal identity to the backend's
// canonical product id. A failed or empty lookup degrades to the cart line's
// own id rather than aborting: an unmapped product must not block a sale.
type ProductResolver struct {
	directory ProductDirectory
}

func NewProductResolver(directory ProductDirectory) *ProductResolver {
	return &ProductResolver{directory: directory}
}

// Resolve returns the backend product id to use for the line. Never fatal.
func (r *ProductResolver) Resolve(ctx context.Context, line CartLine) int {
	if r == nil || r.directory == nil {
		return line.ProductID
	}
	id, err := r.directory.LookupProductID(ctx, line.Name)
	if err != nil {
		log.Printf("product mapping lookup failed for %q, falling back to cart id %d: %v", line.Name, line.ProductID, err)
		return line.ProductID
	}
	if id <= 0 {
		return line.ProductID
	}
	return id
}
