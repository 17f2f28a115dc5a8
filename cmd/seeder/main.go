package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/rahulp1273/recipe-hub/internal/config"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/internal/repository"
	"github.com/rahulp1273/recipe-hub/migrations"
	"github.com/rahulp1273/recipe-hub/pkg/clock"
	"github.com/rahulp1273/recipe-hub/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const seedPassword = "password123"

var seedCooks = []struct {
	Name     string
	Location string
	Bio      string
}{
	{"Asha Patel", "Ahmedabad", "Home cook, mostly Gujarati thalis."},
	{"Marco Rossi", "Bologna", "Fresh pasta every Sunday."},
	{"Yuki Tanaka", "Osaka", "Ramen broth experiments."},
	{"Lena Fischer", "Munich", "Sourdough and pretzels."},
	{"Diego Alvarez", "Oaxaca", "Seven moles and counting."},
}

func main() {
	rollback := flag.Bool("rollback", false, "revert the last migration and exit")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync(log)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	if *rollback {
		if err := migrations.Rollback(cfg.DB.URL(), log); err != nil {
			log.Fatal("rollback failed", zap.Error(err))
		}
		return
	}

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash password", zap.Error(err))
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	now := clock.New().Now()

	log.Info("seeding verified users", zap.Int("count", len(seedCooks)))
	for i, cook := range seedCooks {
		email := fmt.Sprintf("cook%d@recipehub.local", i+1)

		_, err := users.FindByEmail(ctx, email)
		if err == nil {
			log.Info("user exists, skipping", zap.String("email", email))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatal("failed to look up user", zap.String("email", email), zap.Error(err))
		}

		verifiedAt := now
		user := &model.User{
			Name:            cook.Name,
			Email:           email,
			Password:        string(hashedPassword),
			Location:        cook.Location,
			Bio:             cook.Bio,
			EmailVerifiedAt: &verifiedAt,
		}
		if err := users.Create(ctx, user); err != nil {
			log.Error("failed to create user", zap.String("email", email), zap.Error(err))
			continue
		}
		log.Info("created user", zap.String("email", email), zap.String("password", seedPassword))
	}

	log.Info("seeding completed")
}
