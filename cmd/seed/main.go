package main

import (
	"encoding/json"
	"log"
	"os"

	"ai-critic-be/internal/model"
	"ai-critic-be/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/datatypes"
)

func focus(areas ...string) datatypes.JSON {
	b, _ := json.Marshal(areas)
	return datatypes.JSON(b)
}

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding Critic Definitions...")

	critics := []model.Critic{
		{
			Key:          "clarity",
			Name:         "Clarity Critic",
			Tier:         "fast",
			Description:  "Quick pass over wording and readability",
			SystemPrompt: "You are an editor. Point out sentences that are hard to read, vague or ambiguous.",
			Focus:        focus("clarity", "readability"),
			IsActive:     true,
			SortOrder:    1,
		},
		{
			Key:          "structure",
			Name:         "Structure Critic",
			Tier:         "research",
			Description:  "Reviews argument flow and paragraph organisation",
			SystemPrompt: "You are a senior editor. Review how the document is organised: ordering of ideas, transitions, and whether each paragraph supports the main point.",
			Focus:        focus("structure", "flow"),
			IsActive:     true,
			SortOrder:    2,
		},
		{
			Key:          "evidence",
			Name:         "Evidence Critic",
			Tier:         "research",
			Description:  "Checks claims for support and accuracy",
			SystemPrompt: "You are a fact-checking reviewer. Find claims that lack evidence, overstate their certainty, or contradict each other.",
			Focus:        focus("evidence", "accuracy"),
			IsActive:     true,
			SortOrder:    3,
		},
	}

	for _, c := range critics {
		// Check if critic with this key already exists
		var existing model.Critic
		if err := db.Where("key = ?", c.Key).First(&existing).Error; err == nil {
			log.Printf("Critic '%s' already exists, skipping...", c.Key)
			continue
		}

		if err := db.Create(&c).Error; err != nil {
			log.Printf("Error creating critic '%s': %v", c.Key, err)
		} else {
			log.Printf("Created critic: %s (%s)", c.Name, c.Key)
		}
	}

	log.Println("Critic seeding completed!")
}
