package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/database"
	"github.com/apexqbank/apex-backend/internal/logger"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/repository"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/apexqbank/apex-backend/internal/storage"
	"github.com/apexqbank/apex-backend/internal/validator"
)

// importChunk matches the largest batch the admin import endpoint accepts.
const importChunk = 1000

func main() {
	var file string
	var dryRun bool
	flag.StringVar(&file, "file", "", "JSON file holding an array of questions (omit to load the built-in sample set)")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate only, do not insert")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	reqs := sampleQuestions
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Failed to read question file")
		}
		reqs = nil
		if err := json.Unmarshal(raw, &reqs); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Question file is not a JSON array of questions")
		}
	}

	invalid := 0
	for i := range reqs {
		if fields := validator.Struct(&reqs[i]); fields != nil {
			invalid++
			fmt.Printf("question %d rejected: %v\n", i+1, fields)
		}
	}
	if invalid > 0 {
		log.Fatal().Int("invalid", invalid).Int("total", len(reqs)).Msg("Fix the rejected questions and retry")
	}

	fmt.Printf("=== %d questions validated ===\n", len(reqs))
	if dryRun {
		return
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	media := service.NewMediaService(cfg, storage.NewBucket(cfg.Storage), log)
	questionService := service.NewQuestionService(repository.NewQuestionRepository(pool), media, rdb, log)

	inserted := 0
	for start := 0; start < len(reqs); start += importChunk {
		end := min(start+importChunk, len(reqs))
		questions, err := questionService.Import(ctx, reqs[start:end])
		if err != nil {
			log.Fatal().Err(err).Int("offset", start).Msg("Import failed")
		}
		inserted += len(questions)
		fmt.Printf("Imported %d/%d questions...\n", inserted, len(reqs))
	}

	fmt.Printf("\nSeed completed! Added %d questions.\n", inserted)
}

func ptr(s string) *string { return &s }

var sampleQuestions = []model.QuestionRequest{
	{
		Subject:       "Internal Medicine",
		QuestionText:  "A 56-year-old man presents with crushing chest pain and ST elevation in leads II, III and aVF. Which coronary artery is most likely occluded?",
		OptionA:       "Left anterior descending artery",
		OptionB:       "Right coronary artery",
		OptionC:       "Left circumflex artery",
		OptionD:       "Left main coronary artery",
		CorrectOption: "B",
		Explanation:   ptr("Inferior leads II, III and aVF are usually supplied by the right coronary artery."),
		Reference:     ptr("Harrison's Principles of Internal Medicine, ch. 275"),
	},
	{
		Subject:       "Pediatrics",
		QuestionText:  "What is the first-line treatment for uncomplicated severe acute malnutrition in a child with good appetite?",
		OptionA:       "F-75 therapeutic milk as inpatient",
		OptionB:       "Intravenous albumin",
		OptionC:       "Ready-to-use therapeutic food as outpatient",
		OptionD:       "Nasogastric feeding with F-100",
		CorrectOption: "C",
		Explanation:   ptr("Children who pass the appetite test and have no complications are managed as outpatients with RUTF."),
	},
	{
		Subject:       "Surgery",
		QuestionText:  "Which sign is elicited by pain in the right lower quadrant on palpation of the left lower quadrant?",
		OptionA:       "Rovsing sign",
		OptionB:       "Psoas sign",
		OptionC:       "Murphy sign",
		OptionD:       "Obturator sign",
		CorrectOption: "A",
	},
	{
		Subject:       "Obstetrics and Gynecology",
		QuestionText:  "Which drug is first-line for prevention of eclamptic seizures?",
		OptionA:       "Diazepam",
		OptionB:       "Phenytoin",
		OptionC:       "Hydralazine",
		OptionD:       "Magnesium sulfate",
		CorrectOption: "D",
		Explanation:   ptr("Magnesium sulfate reduces the risk of eclampsia and is superior to diazepam and phenytoin."),
	},
	{
		Subject:       "Pharmacology",
		QuestionText:  "Which antituberculous drug commonly causes red-orange discoloration of body fluids?",
		OptionA:       "Isoniazid",
		OptionB:       "Rifampicin",
		OptionC:       "Ethambutol",
		OptionD:       "Pyrazinamide",
		CorrectOption: "B",
	},
}
