package contract

import (
	"context"

	"ai-critic-be/internal/entity"
	"ai-critic-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ICriticRepository defines critic definition storage
type ICriticRepository interface {
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Critic, error)
	FindByKey(ctx context.Context, key string) (*entity.Critic, error)
	FindById(ctx context.Context, id uuid.UUID) (*entity.Critic, error)
	Create(ctx context.Context, critic *entity.Critic) error
	Update(ctx context.Context, critic *entity.Critic) error
	Delete(ctx context.Context, id uuid.UUID) error
}
