// Package cart keeps a local copy of the buyer's cart and mutates it
// optimistically: quantity changes and removals apply locally before the
// backend confirms. A failed call reloads the cart from the backend, which
// stays the single source of truth, rather than undoing the local change.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/AYShukla05/smartkart-client/api"
)

// Item is one cart line as served by GET /cart/.
type Item struct {
	ID          int64       `json:"id"`
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name"`
	Price       api.Decimal `json:"price"`
	Quantity    int         `json:"quantity"`
	Thumbnail   string      `json:"thumbnail"`
}

type payload struct {
	Items []Item `json:"items"`
}

// Service holds the local cart state.
type Service struct {
	api *api.Client
	log zerolog.Logger

	lock   sync.Mutex
	items  []Item
	loaded bool
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithLogger sets the cart logger.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates a cart Service over the given API client.
func NewService(apiClient *api.Client, options ...ServiceOption) *Service {
	s := &Service{
		api: apiClient,
		log: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Load replaces the local cart with the backend's. A failed load leaves an
// empty, loaded cart so callers can render rather than spin.
func (s *Service) Load(ctx context.Context) error {
	var cart payload
	if err := s.api.Get(ctx, "/cart/", &cart); err != nil {
		s.lock.Lock()
		s.items = nil
		s.loaded = true
		s.lock.Unlock()
		s.log.Debug().Err(err).Msg("cart load failed")
		return err
	}
	s.lock.Lock()
	s.items = cart.Items
	s.loaded = true
	s.lock.Unlock()
	return nil
}

// Items returns a snapshot of the local cart.
func (s *Service) Items() []Item {
	s.lock.Lock()
	defer s.lock.Unlock()
	items := make([]Item, len(s.items))
	copy(items, s.items)
	return items
}

// IsLoaded reports whether the cart has been loaded at least once.
func (s *Service) IsLoaded() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.loaded
}

// ItemCount returns the total quantity across all lines.
func (s *Service) ItemCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns the price-weighted total of the local cart.
func (s *Service) Subtotal() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	total := 0.0
	for _, item := range s.items {
		total += float64(item.Price) * float64(item.Quantity)
	}
	return total
}

// ItemByProductID finds the line holding a product, if any.
func (s *Service) ItemByProductID(productID int64) (Item, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, item := range s.items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// AddItem puts a product in the cart and reloads it from the backend, which
// owns line merging for already-present products.
func (s *Service) AddItem(ctx context.Context, productID int64, quantity int) (Item, error) {
	var created Item
	err := s.api.Post(ctx, "/cart/items/", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	}, &created)
	if err != nil {
		return Item{}, err
	}
	if loadErr := s.Load(ctx); loadErr != nil {
		s.log.Debug().Err(loadErr).Msg("cart reload after add failed")
	}
	return created, nil
}

// UpdateQuantity sets a line's quantity locally first, then confirms with the
// backend. On failure the local cart is discarded and reloaded; the error is
// returned to the caller.
func (s *Service) UpdateQuantity(ctx context.Context, itemID, productID int64, quantity int) error {
	s.lock.Lock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Quantity = quantity
			break
		}
	}
	s.lock.Unlock()

	err := s.api.Patch(ctx, fmt.Sprintf("/cart/items/%d/", itemID), map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	}, nil)
	if err != nil {
		s.reconcile(ctx)
		return err
	}
	return nil
}

// RemoveItem drops a line locally first, then confirms with the backend,
// with the same reload-on-failure reconciliation as UpdateQuantity.
func (s *Service) RemoveItem(ctx context.Context, itemID int64) error {
	s.lock.Lock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.lock.Unlock()

	if err := s.api.Delete(ctx, fmt.Sprintf("/cart/items/%d/", itemID)); err != nil {
		s.reconcile(ctx)
		return err
	}
	return nil
}

// ClearLocal empties the local cart without touching the backend (used after
// checkout and logout).
func (s *Service) ClearLocal() {
	s.lock.Lock()
	s.items = nil
	s.loaded = false
	s.lock.Unlock()
}

// reconcile restores the backend's view after a failed mutation. It is
// unconditional: the optimistic change never outlives a failed call.
func (s *Service) reconcile(ctx context.Context) {
	if err := s.Load(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cart reconciliation load failed")
	}
}
