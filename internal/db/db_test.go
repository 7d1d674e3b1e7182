package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"orderbackup/internal/config"
	"orderbackup/internal/models"
)

func TestOpenMigrateSqlite(t *testing.T) {
	conn, err := Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(conn) })

	require.NoError(t, AutoMigrate(conn))
	require.NoError(t, SetTimezone(conn, "Europe/Warsaw"))
	assert.True(t, conn.Gorm.Migrator().HasTable(&models.OrderEvent{}))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "mysql"})
	require.Error(t, err)
}

func TestWithLoggerReportsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	conn, err := Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"}, WithLogger(zap.New(core)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(conn) })

	require.NoError(t, AutoMigrate(conn))
	before := logs.Len()

	var ev models.OrderEvent
	require.Error(t, conn.Gorm.First(&ev).Error)
	assert.Equal(t, before, logs.Len())

	require.Error(t, conn.Gorm.Exec("SELECT * FROM missing_table").Error)
	assert.Equal(t, before+1, logs.Len())
}

func TestSetTimezoneRejectsUnknownZone(t *testing.T) {
	require.Error(t, SetTimezone(&DB{Driver: "postgres"}, "Mars/Olympus"))
}
