package domain

import "context"

// Category groups events by topic.
// swagger:model Category
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryRepository defines the interface for category storage.
type CategoryRepository interface {
	// Create inserts category; a duplicate name returns ErrConflict.
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id string) (*Category, error)
}

// CategoryService defines category administration.
type CategoryService interface {
	Create(ctx context.Context, name string) (*Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
}
