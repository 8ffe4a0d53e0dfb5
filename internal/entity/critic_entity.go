package entity

import (
	"time"

	"github.com/google/uuid"
)

// Critic is a configured LLM reviewer
type Critic struct {
	Id            uuid.UUID
	Key           string   // worker id, e.g. "argument-structure"
	Name          string   // Display name
	Tier          string   // "fast" | "research"
	Description   string   // Admin description
	SystemPrompt  string   // Reviewer instructions
	ModelOverride *string  // Optional: use a different model for this critic
	Focus         []string // Insight categories the critic should look for
	IsActive      bool
	SortOrder     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
