package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"carrental/internal/database"
	"carrental/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type carsFile struct {
	Cars []models.Car `yaml:"cars"`
}

func loadCars(path string) ([]models.Car, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f carsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Cars, nil
}

// seedCars fills an empty catalogue from the seed file. A missing file is
// not an error.
func seedCars(ctx context.Context, db *database.DB, path string, logger *zerolog.Logger) error {
	count, err := db.CountCars(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	cars, err := loadCars(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info().Str("cars_file", path).Msg("no car seed file, starting with an empty catalogue")
		return nil
	}
	if err != nil {
		return err
	}

	for i := range cars {
		car := cars[i]
		car.ID = 0
		car.Available = true
		if err := db.CreateCar(ctx, &car); err != nil {
			return fmt.Errorf("seed car %q: %w", car.DisplayName(), err)
		}
	}

	logger.Info().Int("cars", len(cars)).Str("cars_file", path).Msg("car catalogue seeded")
	return nil
}
