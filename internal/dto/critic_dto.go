package dto

import (
	"time"

	"ai-critic-be/internal/entity"

	"github.com/google/uuid"
)

type CreateCriticRequest struct {
	Key           string   `json:"key" validate:"required,max=100"`
	Name          string   `json:"name" validate:"required,max=200"`
	Tier          string   `json:"tier" validate:"required,oneof=fast research"`
	Description   string   `json:"description"`
	SystemPrompt  string   `json:"system_prompt" validate:"required"`
	ModelOverride *string  `json:"model_override" validate:"omitempty,max=100"`
	Focus         []string `json:"focus" validate:"omitempty,dive,max=50"`
	SortOrder     int      `json:"sort_order"`
}

type CriticResponse struct {
	Id            uuid.UUID `json:"id"`
	Key           string    `json:"key"`
	Name          string    `json:"name"`
	Tier          string    `json:"tier"`
	Description   string    `json:"description"`
	ModelOverride *string   `json:"model_override,omitempty"`
	Focus         []string  `json:"focus"`
	IsActive      bool      `json:"is_active"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
}

type CriticListResponse struct {
	Critics []CriticResponse `json:"critics"`
	Workers []string         `json:"workers"`
}

func NewCriticResponse(e *entity.Critic) CriticResponse {
	focus := e.Focus
	if focus == nil {
		focus = []string{}
	}
	return CriticResponse{
		Id:            e.Id,
		Key:           e.Key,
		Name:          e.Name,
		Tier:          e.Tier,
		Description:   e.Description,
		ModelOverride: e.ModelOverride,
		Focus:         focus,
		IsActive:      e.IsActive,
		SortOrder:     e.SortOrder,
		CreatedAt:     e.CreatedAt,
	}
}
