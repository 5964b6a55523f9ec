package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/database"
	"github.com/hsscguru/hssc-guru-backend/internal/logger"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
	"github.com/hsscguru/hssc-guru-backend/internal/service"
)

// Seeds the question bank from a CSV file. Same format as the admin upload:
// text,options,answer,explanation,topic
func main() {
	var csvPath string
	flag.StringVar(&csvPath, "file", "", "Path to a question CSV file")
	flag.Parse()

	if csvPath == "" {
		fmt.Println("Usage: seed-questions -file questions.csv")
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", csvPath).Msg("Failed to open CSV")
	}
	defer f.Close()

	importService := service.NewImportService(repository.NewQuestionRepository(pool), log)

	report, err := importService.ImportCSV(ctx, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Printf("Inserted %d questions, skipped %d rows\n", report.Inserted, report.Skipped)
	for _, re := range report.Errors {
		fmt.Printf("  line %d: %s\n", re.Line, re.Message)
	}
}
