package database

import (
	"testing"

	"libraryms/pkg/config"
	"libraryms/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSqliteAndSeed(t *testing.T) {
	db, err := Open(config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var users, items int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Item{}).Count(&items)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(5), items)

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsAdmin())

	var ebook models.Item
	require.NoError(t, db.Where("kind = ?", models.KindEBook).First(&ebook).Error)
	assert.Equal(t, ebook.TotalCopies, ebook.AvailableCopies)
	assert.False(t, ebook.IsPhysical())
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := Open(config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
