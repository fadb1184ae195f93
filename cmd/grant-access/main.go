package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/database"
	"github.com/apexqbank/apex-backend/internal/logger"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/repository"
	"github.com/apexqbank/apex-backend/internal/service"
)

func main() {
	var email string
	var days int
	var lifetime bool
	flag.StringVar(&email, "email", "", "Learner email")
	flag.IntVar(&days, "days", 0, "Days of access to add")
	flag.BoolVar(&lifetime, "lifetime", false, "Grant lifetime access")
	flag.Parse()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || (days <= 0 && !lifetime) {
		fmt.Println("Usage: grant-access -email <email> (-days <n> | -lifetime)")
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	profileRepo := repository.NewProfileRepository(pool)
	access := service.NewAccessService(profileRepo)
	profiles := service.NewProfileService(profileRepo, repository.NewAttemptRepository(pool), access, log)

	learner, err := profiles.FindByEmail(ctx, email)
	if errors.Is(err, service.ErrNotFound) {
		fmt.Printf("Error: no learner has signed in with %s yet\n", email)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up learner")
	}

	updated, err := profiles.GrantAccess(ctx, learner.Profile.ID, &model.GrantAccessRequest{Days: days, Lifetime: lifetime})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to grant access")
	}

	switch {
	case updated.Access.Lifetime:
		fmt.Printf("Success! %s now has lifetime access.\n", email)
	case updated.Access.PaidUntil != nil:
		fmt.Printf("Success! %s has access until %s (%d days left).\n",
			email, updated.Access.PaidUntil.Format(time.RFC1123), updated.Access.DaysLeft)
	default:
		fmt.Printf("Access updated for %s.\n", email)
	}
}
