package repositories

import (
	"context"

	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
)

// DisplayScreenRepository defines the interface for display screen storage
type DisplayScreenRepository interface {
	// Create stores a new screen
	Create(ctx context.Context, screen *entities.DisplayScreen) error

	// GetByID retrieves a screen by ID
	GetByID(ctx context.Context, id string) (*entities.DisplayScreen, error)

	// List retrieves screens ordered by name
	List(ctx context.Context, filter DisplayScreenFilter) ([]*entities.DisplayScreen, error)

	// Delete removes a screen
	Delete(ctx context.Context, id string) error
}

// DisplayScreenFilter defines filters for listing screens
type DisplayScreenFilter struct {
	Variant  entities.ScreenVariant
	DoctorID string
	Limit    int
	Offset   int
}
