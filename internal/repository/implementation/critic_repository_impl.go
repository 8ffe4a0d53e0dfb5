package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"ai-critic-be/internal/entity"
	"ai-critic-be/internal/model"
	"ai-critic-be/internal/repository/contract"
	"ai-critic-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type criticRepository struct {
	db *gorm.DB
}

// NewCriticRepository creates a GORM backed critic repository
func NewCriticRepository(db *gorm.DB) contract.ICriticRepository {
	return &criticRepository{db: db}
}

func (r *criticRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Critic, error) {
	var models []model.Critic
	query := specification.ApplyAll(r.db.WithContext(ctx), specs...)
	query = query.Order("sort_order ASC, created_at ASC")

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entities := make([]*entity.Critic, len(models))
	for i := range models {
		entities[i] = criticModelToEntity(&models[i])
	}
	return entities, nil
}

func (r *criticRepository) FindByKey(ctx context.Context, key string) (*entity.Critic, error) {
	var m model.Critic
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return criticModelToEntity(&m), nil
}

func (r *criticRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Critic, error) {
	var m model.Critic
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return criticModelToEntity(&m), nil
}

func (r *criticRepository) Create(ctx context.Context, critic *entity.Critic) error {
	if critic.Id == uuid.Nil {
		critic.Id = uuid.New()
	}
	m := criticEntityToModel(critic)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	critic.Id = m.Id
	critic.CreatedAt = m.CreatedAt
	critic.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *criticRepository) Update(ctx context.Context, critic *entity.Critic) error {
	m := criticEntityToModel(critic)
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *criticRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Critic{}, "id = ?", id).Error
}

func criticModelToEntity(m *model.Critic) *entity.Critic {
	var focus []string
	if len(m.Focus) > 0 {
		_ = json.Unmarshal(m.Focus, &focus)
	}
	return &entity.Critic{
		Id:            m.Id,
		Key:           m.Key,
		Name:          m.Name,
		Tier:          m.Tier,
		Description:   m.Description,
		SystemPrompt:  m.SystemPrompt,
		ModelOverride: m.ModelOverride,
		Focus:         focus,
		IsActive:      m.IsActive,
		SortOrder:     m.SortOrder,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func criticEntityToModel(e *entity.Critic) *model.Critic {
	focus := datatypes.JSON([]byte("[]"))
	if len(e.Focus) > 0 {
		if raw, err := json.Marshal(e.Focus); err == nil {
			focus = datatypes.JSON(raw)
		}
	}
	return &model.Critic{
		Id:            e.Id,
		Key:           e.Key,
		Name:          e.Name,
		Tier:          e.Tier,
		Description:   e.Description,
		SystemPrompt:  e.SystemPrompt,
		ModelOverride: e.ModelOverride,
		Focus:         focus,
		IsActive:      e.IsActive,
		SortOrder:     e.SortOrder,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
