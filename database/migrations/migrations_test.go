package migrations_test

import (
	"path/filepath"
	"testing"

	_ "github.com/shashiranjanraj/billbook/database/migrations"
	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/database"
	"github.com/shashiranjanraj/billbook/pkg/migration"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaMigratesUpAndDown(t *testing.T) {
	db, err := database.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)

	r := migration.New(db, nil)
	require.NoError(t, r.Run())
	for _, m := range append(models.All(), &queue.FailedJobRecord{}) {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	require.NoError(t, r.Rollback())
	assert.False(t, db.Migrator().HasTable(&models.Invoice{}))
	assert.False(t, db.Migrator().HasTable(&models.User{}))
}
