package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-passport-preview/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormUserStorage struct {
	db *gorm.DB
}

// NewPostgresUserStorage opens the database behind dsn and migrates the
// users table.
func NewPostgresUserStorage(dsn string) (*GormUserStorage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewGormUserStorage(db)
}

func NewGormUserStorage(db *gorm.DB) (*GormUserStorage, error) {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users table: %w", err)
	}
	slog.Info("Users table migrated")
	return &GormUserStorage{db: db}, nil
}

func (s *GormUserStorage) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", identifier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *GormUserStorage) Insert(ctx context.Context, user models.User) error {
	err := s.db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}
