package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/repository"
)

// ItemService manages the items of wishlists. Only owners change items.
type ItemService struct {
	wishlists repository.WishlistRepository
	items     repository.ItemRepository
	changes   ChangePublisher
	logger    *slog.Logger
}

func NewItemService(
	wishlists repository.WishlistRepository,
	items repository.ItemRepository,
	changes ChangePublisher,
	logger *slog.Logger,
) *ItemService {
	return &ItemService{
		wishlists: wishlists,
		items:     items,
		changes:   changes,
		logger:    logger,
	}
}

// CreateItemInput holds the fields of a new item. A nil Priority means the
// default priority.
type CreateItemInput struct {
	Title       string
	Description string
	ImageURL    *string
	ProductURL  *string
	Price       *float64
	Priority    *int
}

// UpdateItemInput changes only the non-nil fields. Empty URL strings clear
// the URL.
type UpdateItemInput struct {
	Title       *string
	Description *string
	ImageURL    *string
	ProductURL  *string
	Price       *float64
	ClearPrice  bool
	Priority    *int
}

// Create adds an item to a wishlist of v.
func (s *ItemService) Create(ctx context.Context, v domain.Viewer, wishlistID string, input CreateItemInput) (*domain.Item, error) {
	if err := requireSignedIn(v, "add items"); err != nil {
		return nil, err
	}
	if _, err := ownedWishlist(ctx, s.wishlists, v, wishlistID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:          uuid.New().String(),
		WishlistID:  wishlistID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		ImageURL:    optionalURL(input.ImageURL),
		ProductURL:  optionalURL(input.ProductURL),
		Price:       input.Price,
		Priority:    domain.DefaultPriority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Priority != nil {
		item.Priority = *input.Priority
	}
	if err := item.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	publishChange(ctx, s.changes, s.logger, domain.NewChange(domain.TableItems, domain.OpInsert, item.ID, wishlistID))

	s.logger.InfoContext(ctx, "item created",
		slog.String("item_id", item.ID),
		slog.String("wishlist_id", wishlistID),
	)
	return item, nil
}

// Update edits an item on a wishlist of v.
func (s *ItemService) Update(ctx context.Context, v domain.Viewer, itemID string, input UpdateItemInput) (*domain.Item, error) {
	if err := requireSignedIn(v, "edit items"); err != nil {
		return nil, err
	}
	item, err := s.ownedItem(ctx, v, itemID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		item.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		item.Description = strings.TrimSpace(*input.Description)
	}
	if input.ImageURL != nil {
		item.ImageURL = optionalURL(input.ImageURL)
	}
	if input.ProductURL != nil {
		item.ProductURL = optionalURL(input.ProductURL)
	}
	switch {
	case input.ClearPrice:
		item.Price = nil
	case input.Price != nil:
		item.Price = input.Price
	}
	if input.Priority != nil {
		item.Priority = *input.Priority
	}
	if err := item.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	publishChange(ctx, s.changes, s.logger, domain.NewChange(domain.TableItems, domain.OpUpdate, item.ID, item.WishlistID))

	s.logger.InfoContext(ctx, "item updated", slog.String("item_id", item.ID))
	return item, nil
}

// Delete removes an item and its reservation.
func (s *ItemService) Delete(ctx context.Context, v domain.Viewer, itemID string) error {
	if err := requireSignedIn(v, "delete items"); err != nil {
		return err
	}
	item, err := s.ownedItem(ctx, v, itemID)
	if err != nil {
		return err
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	publishChange(ctx, s.changes, s.logger, domain.NewChange(domain.TableItems, domain.OpDelete, itemID, item.WishlistID))

	s.logger.InfoContext(ctx, "item deleted", slog.String("item_id", itemID))
	return nil
}

func (s *ItemService) ownedItem(ctx context.Context, v domain.Viewer, itemID string) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if _, err := ownedWishlist(ctx, s.wishlists, v, item.WishlistID); err != nil {
		return nil, err
	}
	return item, nil
}

func optionalURL(u *string) *string {
	if u == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*u)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
