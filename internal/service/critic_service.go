package service

import (
	"context"
	"fmt"

	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/entity"
	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/internal/repository/contract"
	"ai-critic-be/internal/repository/specification"
	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/critic"
	"ai-critic-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

type ICriticService interface {
	List(ctx context.Context) (*dto.CriticListResponse, error)
	Create(ctx context.Context, req *dto.CreateCriticRequest) (*dto.CriticResponse, error)
	// Reload rebuilds the LLM critics from the active definitions.
	Reload(ctx context.Context) error
}

type criticService struct {
	repo      contract.ICriticRepository
	registry  *critic.Registry
	provider  llm.LLMProvider
	threshold float64
	logger    logger.ILogger
}

func NewCriticService(repo contract.ICriticRepository, registry *critic.Registry, provider llm.LLMProvider, threshold float64, log logger.ILogger) ICriticService {
	return &criticService{
		repo:      repo,
		registry:  registry,
		provider:  provider,
		threshold: threshold,
		logger:    log,
	}
}

func (s *criticService) List(ctx context.Context) (*dto.CriticListResponse, error) {
	defs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	res := &dto.CriticListResponse{
		Critics: make([]dto.CriticResponse, 0, len(defs)),
		Workers: s.registry.IDs(),
	}
	for _, d := range defs {
		res.Critics = append(res.Critics, dto.NewCriticResponse(d))
	}
	return res, nil
}

func (s *criticService) Create(ctx context.Context, req *dto.CreateCriticRequest) (*dto.CriticResponse, error) {
	existing, err := s.repo.FindByKey(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fiber.NewError(fiber.StatusConflict, fmt.Sprintf("critic %q already exists", req.Key))
	}

	def := &entity.Critic{
		Key:           req.Key,
		Name:          req.Name,
		Tier:          req.Tier,
		Description:   req.Description,
		SystemPrompt:  req.SystemPrompt,
		ModelOverride: req.ModelOverride,
		Focus:         req.Focus,
		IsActive:      true,
		SortOrder:     req.SortOrder,
	}
	if err := s.repo.Create(ctx, def); err != nil {
		return nil, err
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	res := dto.NewCriticResponse(def)
	return &res, nil
}

func (s *criticService) Reload(ctx context.Context) error {
	if s.provider == nil {
		s.logger.Warn("CriticService", "No LLM provider, only built-in critics are active", nil)
		return nil
	}

	defs, err := s.repo.FindAll(ctx, specification.ActiveCritics{})
	if err != nil {
		return err
	}

	workers := make([]analysis.Worker, 0, len(defs))
	for _, d := range defs {
		workers = append(workers, critic.NewLLMCritic(toDefinition(d), s.provider, s.threshold))
	}
	s.registry.SetDynamic(workers)

	s.logger.Info("CriticService", "Critics reloaded", map[string]interface{}{
		"llm_critics": len(workers),
		"workers":     s.registry.IDs(),
	})
	return nil
}

func toDefinition(e *entity.Critic) critic.Definition {
	def := critic.Definition{
		ID:           e.Key,
		Name:         e.Name,
		Tier:         analysis.Tier(e.Tier),
		SystemPrompt: e.SystemPrompt,
		Focus:        e.Focus,
	}
	if e.ModelOverride != nil {
		def.Model = *e.ModelOverride
	}
	return def
}
