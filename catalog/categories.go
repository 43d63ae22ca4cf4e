package catalog

import (
	"context"
	"fmt"
)

// Category is a catalog grouping. Create/update/delete are admin-only.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsActive bool   `json:"is_active"`
}

// Categories fetches all categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.api.Get(ctx, "/categories/", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Category fetches a single category.
func (c *Client) Category(ctx context.Context, id int64) (*Category, error) {
	var category Category
	if err := c.api.Get(ctx, fmt.Sprintf("/categories/%d/", id), &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory adds a category.
func (c *Client) CreateCategory(ctx context.Context, name string) (*Category, error) {
	var category Category
	if err := c.api.Post(ctx, "/categories/", map[string]string{"name": name}, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// UpdateCategory renames a category.
func (c *Client) UpdateCategory(ctx context.Context, id int64, name string) (*Category, error) {
	var category Category
	if err := c.api.Patch(ctx, fmt.Sprintf("/categories/%d/", id), map[string]string{"name": name}, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, fmt.Sprintf("/categories/%d/", id))
}
