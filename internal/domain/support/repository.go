package support

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	List(ctx context.Context) ([]*Request, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (*Request, error)
}
