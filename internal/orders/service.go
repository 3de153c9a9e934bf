// Package orders turns parse results into purchase orders and walks them
// through the delivery lifecycle.
package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"orderdesk/internal"
	"orderdesk/internal/storage"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrBadTransition = errors.New("status transition not allowed")
)

// transitions lists the forward-only status walk. Orders never move
// backwards and never skip a step.
var transitions = map[internal.OrderStatus]internal.OrderStatus{
	internal.OrderOpen:       internal.OrderDispatched,
	internal.OrderDispatched: internal.OrderOnTheWay,
	internal.OrderOnTheWay:   internal.OrderCompleted,
}

type Service struct {
	db *storage.DB
}

func NewService(db *storage.DB) *Service {
	return &Service{db: db}
}

// CreateFromParse persists a parse result as an open order. Matched items
// resolve against the catalog; new items are added to the catalog first so
// the next parse can match them.
func (s *Service) CreateFromParse(storeID, supplierID string, items []internal.ParsedItem) (internal.Order, error) {
	if len(items) == 0 {
		return internal.Order{}, errors.New("order needs at least one item")
	}

	orderItems := make([]internal.OrderItem, 0, len(items))
	for _, it := range items {
		switch it.Kind {
		case internal.ItemMatched:
			entry, err := s.db.GetCatalogItem(it.MatchedItemID)
			if err != nil {
				return internal.Order{}, err
			}
			if entry == nil {
				return internal.Order{}, fmt.Errorf("catalog item not found: %s", it.MatchedItemID)
			}
			orderItems = append(orderItems, internal.OrderItem{
				ItemID:   entry.ID,
				Name:     entry.Name,
				Quantity: it.Quantity,
				Unit:     entry.Unit,
			})
		case internal.ItemNew:
			entry := internal.CatalogItem{
				ID:         uuid.NewString(),
				Name:       it.NewItemName,
				Unit:       it.Unit,
				SupplierID: supplierID,
			}
			if err := s.db.UpsertCatalogItems([]internal.CatalogItem{entry}); err != nil {
				return internal.Order{}, err
			}
			orderItems = append(orderItems, internal.OrderItem{
				ItemID:   entry.ID,
				Name:     entry.Name,
				Quantity: it.Quantity,
				Unit:     entry.Unit,
			})
		default:
			return internal.Order{}, fmt.Errorf("unknown parsed item kind: %q", it.Kind)
		}
	}

	order := internal.Order{
		ID:         uuid.NewString(),
		StoreID:    storeID,
		SupplierID: supplierID,
		Status:     internal.OrderOpen,
		Items:      orderItems,
	}
	if err := s.db.InsertOrder(order); err != nil {
		return internal.Order{}, err
	}

	stored, err := s.db.GetOrder(order.ID)
	if err != nil {
		return internal.Order{}, err
	}
	return *stored, nil
}

func (s *Service) Get(id string) (internal.Order, error) {
	order, err := s.db.GetOrder(id)
	if err != nil {
		return internal.Order{}, err
	}
	if order == nil {
		return internal.Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *order, nil
}

func (s *Service) List(status internal.OrderStatus, limit int) ([]internal.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.ListOrders(status, limit)
}

// UpdateStatus advances an order one step along the lifecycle.
func (s *Service) UpdateStatus(id string, next internal.OrderStatus) (internal.Order, error) {
	order, err := s.db.GetOrder(id)
	if err != nil {
		return internal.Order{}, err
	}
	if order == nil {
		return internal.Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if transitions[order.Status] != next {
		return internal.Order{}, fmt.Errorf("%w: %s -> %s", ErrBadTransition, order.Status, next)
	}

	if err := s.db.UpdateOrderStatus(id, next); err != nil {
		return internal.Order{}, err
	}
	return s.Get(id)
}

// ParseStatus validates a user-supplied status string.
func ParseStatus(raw string) (internal.OrderStatus, error) {
	s := internal.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case internal.OrderOpen, internal.OrderDispatched, internal.OrderOnTheWay, internal.OrderCompleted:
		return s, nil
	}
	return "", fmt.Errorf("unknown status: %q", raw)
}
