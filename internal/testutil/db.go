// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/db"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/utils"
)

// Password is the plain-text password of every user made by CreateUser.
const Password = "password123"

// passwordHash is computed once; bcrypt is slow on purpose.
var passwordHash string

func init() {
	h, err := utils.HashPassword(Password)
	if err != nil {
		panic(err)
	}
	passwordHash = h
}

func QuietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewDB returns a migrated, private in-memory SQLite database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := db.Connect("sqlite", dsn, QuietLogger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func CreateUser(t testing.TB, gdb *gorm.DB, role models.Role) *models.User {
	t.Helper()

	id := uuid.New()
	u := &models.User{
		ID:        id,
		Email:     fmt.Sprintf("%s-%s@example.com", role, id.String()[:8]),
		FirstName: string(role),
		LastName:  id.String()[:8],
		Password:  passwordHash,
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func Deactivate(t testing.TB, gdb *gorm.DB, u *models.User) {
	t.Helper()
	require.NoError(t, gdb.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)
	u.IsActive = false
}

func CreateProject(t testing.TB, gdb *gorm.DB, client *models.User, status models.ProjectStatus) *models.Project {
	t.Helper()

	p := &models.Project{
		ClientID:    client.ID,
		Title:       "Brand identity for a coffee roaster",
		Description: "Logo, palette and packaging",
		Category:    "design",
		Status:      status,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func CreateApplication(t testing.TB, gdb *gorm.DB, project *models.Project, creative *models.User) *models.Application {
	t.Helper()

	a := &models.Application{
		ProjectID:   project.ID,
		CreativeID:  creative.ID,
		CoverLetter: "I have shipped a dozen of these.",
	}
	require.NoError(t, gdb.Create(a).Error)
	return a
}

// Hire puts project into the hired state with creative, bypassing the
// application flow.
func Hire(t testing.TB, gdb *gorm.DB, project *models.Project, creative *models.User) {
	t.Helper()

	app := CreateApplication(t, gdb, project, creative)
	require.NoError(t, gdb.Model(&models.Application{}).Where("id = ?", app.ID).
		Update("status", models.ApplicationStatusAccepted).Error)
	require.NoError(t, gdb.Model(&models.Project{}).Where("id = ?", project.ID).
		Updates(map[string]any{"status": models.ProjectStatusHired, "hired_creative_id": creative.ID}).Error)
	project.Status = models.ProjectStatusHired
	project.HiredCreativeID = &creative.ID
}
