package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/morezero/desktop-shell/pkg/catalog"
)

// MetadataService serves the media catalog.
type MetadataService struct {
	store catalog.Store
}

// NewMetadataService creates a MetadataService over store.
func NewMetadataService(store catalog.Store) MetadataService {
	return MetadataService{store: store}
}

// Catalog returns the full catalog. Never nil.
func (s *MetadataService) Catalog(ctx context.Context) ([]catalog.MediaItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]catalog.MediaItem, 0)
	}
	return items, nil
}

// Search filters the catalog by title. Never nil.
func (s *MetadataService) Search(ctx context.Context, query string) ([]catalog.MediaItem, error) {
	items, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]catalog.MediaItem, 0)
	}
	return items, nil
}

// Item returns one catalog item.
func (s *MetadataService) Item(ctx context.Context, id string) (*catalog.MediaItem, error) {
	if id == "" {
		return nil, NewServiceError(CodeInvalidArgument, "Missing item id")
	}
	item, err := s.store.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, NewServiceError(CodeNotFound, fmt.Sprintf("Item not found: %s", id))
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}
