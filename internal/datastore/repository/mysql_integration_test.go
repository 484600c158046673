//go:build integration

package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
	"github.com/tphakala/chargewatch-go/internal/testutil/containers"
)

var (
	mysqlContainer *containers.MySQLContainer
	mysqlDB        *gorm.DB
)

var allTables = []string{"alerts", "sensor_readings", "cameras", "detection_events"}

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	mysqlContainer, err = containers.NewMySQLContainer(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start MySQL container: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	mysqlDB, err = datastore.Open(conf.DatabaseSettings{Type: "mysql", DSN: mysqlContainer.DSN()}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open datastore: %v\n", err)
		_ = mysqlContainer.Terminate(context.Background())
		os.Exit(1)
	}

	code := m.Run()
	_ = mysqlContainer.Terminate(context.Background())
	os.Exit(code)
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, mysqlContainer.Reset(context.Background(), allTables))
}

func TestMySQLAlertRoundTrip(t *testing.T) {
	resetTables(t)
	repo := NewAlertRepository(mysqlDB)
	ctx := context.Background()

	created := &entities.Alert{
		AlertType:  "overheat",
		Status:     "new",
		Message:    "abnormal temperature: 72.40°C",
		SourceType: "sensor",
		SourceID:   "temperature",
		Severity:   4,
		Details:    entities.JSONMap{"sensor_type": "temperature", "value": 72.4},
	}
	require.NoError(t, repo.Create(ctx, created))
	require.NotZero(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "overheat", got.AlertType)
	assert.Equal(t, 4, got.Severity)
	assert.Equal(t, 72.4, got.Details["value"])

	now := time.Now().UTC().Truncate(time.Second)
	got.Status = "resolved"
	got.ResolvedAt = &now
	require.NoError(t, repo.Save(ctx, got))

	saved, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "resolved", saved.Status)
	require.NotNil(t, saved.ResolvedAt)
	assert.True(t, saved.ResolvedAt.Equal(now))
}

func TestMySQLAlertListAndStats(t *testing.T) {
	resetTables(t)
	repo := NewAlertRepository(mysqlDB)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &entities.Alert{
			AlertType:  "smoke",
			Status:     "new",
			Message:    "smoke detected",
			SourceType: "sensor",
			SourceID:   "smoke",
			Severity:   4,
		}))
	}
	require.NoError(t, repo.Create(ctx, &entities.Alert{
		AlertType:  "fire",
		Status:     "resolved",
		Message:    "fire detected",
		SourceType: "camera",
		SourceID:   "camera/1",
		Severity:   5,
	}))

	alerts, total, err := repo.List(ctx, AlertFilter{AlertType: "smoke"})
	require.NoError(t, err)
	assert.Len(t, alerts, 3)
	assert.EqualValues(t, 3, total)

	_, total, err = repo.List(ctx, AlertFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	stats, err := repo.Stats(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.ByType["smoke"])
	assert.EqualValues(t, 1, stats.ByType["fire"])
	assert.EqualValues(t, 1, stats.ByStatus["resolved"])
}

func TestMySQLSensorReadingQueries(t *testing.T) {
	resetTables(t)
	repo := NewSensorReadingRepository(mysqlDB)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, value := range []float64{10, 20, 30} {
		require.NoError(t, repo.Create(ctx, &entities.SensorReading{
			SensorType: entities.SensorTypeCurrent,
			Value:      value,
			DeviceID:   "sim_current_001",
			Unit:       "A",
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	latest, err := repo.LatestByType(ctx, entities.SensorTypeCurrent)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 30.0, latest.Value)

	avg, err := repo.AverageByType(ctx, entities.SensorTypeCurrent, time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, avg, 0.001)

	readings, err := repo.List(ctx, ReadingFilter{SensorType: entities.SensorTypeCurrent, Limit: 2})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 30.0, readings[0].Value)
}

func TestMySQLCameraLifecycle(t *testing.T) {
	resetTables(t)
	repo := NewCameraRepository(mysqlDB)
	ctx := context.Background()

	cam := &entities.Camera{
		Name:   "entrance",
		URL:    "http://cam.local/stream",
		Status: "active",
	}
	require.NoError(t, repo.Create(ctx, cam))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, repo.Delete(ctx, cam.ID))
	err = repo.Delete(ctx, cam.ID)
	assert.ErrorIs(t, err, ErrCameraNotFound)
}
