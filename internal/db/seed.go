package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/utils"
)

// SeedAdmin creates the bootstrap admin account if no user with that email
// exists yet. It reports whether a row was inserted.
func SeedAdmin(ctx context.Context, gdb *gorm.DB, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("seed admin: email and password required")
	}

	created := false
	err := WithTx(ctx, gdb, func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		admin := models.User{
			Email:      email,
			FirstName:  "Admin",
			LastName:   "User",
			Password:   hash,
			Role:       models.RoleAdmin,
			IsActive:   true,
			IsVerified: true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
