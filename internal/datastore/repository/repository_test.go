package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	err = db.AutoMigrate(
		&entities.Alert{},
		&entities.SensorReading{},
		&entities.Camera{},
		&entities.DetectionEvent{},
	)
	require.NoError(t, err, "failed to migrate schema")
	return db
}

func TestAlertRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	alert := &entities.Alert{
		AlertType:  "overcurrent",
		Message:    "current 25.30A exceeds critical threshold",
		SourceType: "sensor",
		SourceID:   "current",
		Severity:   4,
		Details:    entities.JSONMap{"value": 25.3, "threshold": 18.0},
	}
	require.NoError(t, repo.Create(ctx, alert))
	require.NotZero(t, alert.ID)

	got, err := repo.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "overcurrent", got.AlertType)
	assert.Equal(t, "new", got.Status)
	assert.Equal(t, 4, got.Severity)
	assert.InDelta(t, 25.3, got.Details["value"], 0.001)
}

func TestAlertRepositoryGetNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)

	_, err := repo.Get(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestAlertRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	seed := []entities.Alert{
		{AlertType: "overcurrent", Status: "new", SourceType: "sensor", SourceID: "current", Severity: 4},
		{AlertType: "smoke", Status: "acknowledged", SourceType: "sensor", SourceID: "smoke", Severity: 5},
		{AlertType: "fire", Status: "new", SourceType: "camera", SourceID: "1", Severity: 5},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	alerts, total, err := repo.List(ctx, AlertFilter{Status: "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, alerts, 2)

	alerts, total, err = repo.List(ctx, AlertFilter{Source: "camera"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, alerts, 1)
	assert.Equal(t, "fire", alerts[0].AlertType)

	alerts, total, err = repo.List(ctx, AlertFilter{Statuses: []string{"new", "acknowledged"}, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, alerts, 2)
}

func TestAlertRepositorySaveUpdatesStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	alert := &entities.Alert{AlertType: "overheat", SourceType: "sensor", SourceID: "temperature", Severity: 4}
	require.NoError(t, repo.Create(ctx, alert))

	now := time.Now().UTC()
	alert.Status = "resolved"
	alert.ResolvedAt = &now
	require.NoError(t, repo.Save(ctx, alert))

	got, err := repo.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "resolved", got.Status)
	require.NotNil(t, got.ResolvedAt)
}

func TestAlertRepositorySaveRequiresID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)

	err := repo.Save(context.Background(), &entities.Alert{AlertType: "smoke"})
	assert.Error(t, err)
}

func TestAlertRepositoryStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	for _, a := range []entities.Alert{
		{AlertType: "overcurrent", Severity: 4},
		{AlertType: "overcurrent", Severity: 3},
		{AlertType: "smoke", Severity: 5},
	} {
		alert := a
		require.NoError(t, repo.Create(ctx, &alert))
	}

	stats, err := repo.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ByType["overcurrent"])
	assert.Equal(t, int64(1), stats.ByType["smoke"])
	assert.Equal(t, int64(3), stats.ByStatus["new"])
	var dated int64
	for _, n := range stats.ByDate {
		dated += n
	}
	assert.Equal(t, int64(3), dated)
}

func TestSensorReadingRepositoryLatestAndAverage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSensorReadingRepository(db)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, v := range []float64{10, 12, 14} {
		reading := &entities.SensorReading{
			SensorType: entities.SensorTypeCurrent,
			Value:      v,
			Unit:       "A",
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, reading))
	}

	latest, err := repo.LatestByType(ctx, entities.SensorTypeCurrent)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 14.0, latest.Value, 0.001)

	avg, err := repo.AverageByType(ctx, entities.SensorTypeCurrent, time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, avg, 0.001)

	missing, err := repo.LatestByType(ctx, entities.SensorTypeSmoke)
	require.NoError(t, err)
	assert.Nil(t, missing)

	zero, err := repo.AverageByType(ctx, entities.SensorTypeSmoke, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, zero)
}

func TestSensorReadingRepositoryListFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSensorReadingRepository(db)
	ctx := context.Background()

	for _, st := range []string{entities.SensorTypeCurrent, entities.SensorTypeVoltage, entities.SensorTypeCurrent} {
		require.NoError(t, repo.Create(ctx, &entities.SensorReading{SensorType: st, Value: 1, Unit: "x"}))
	}

	readings, err := repo.List(ctx, ReadingFilter{SensorType: entities.SensorTypeCurrent})
	require.NoError(t, err)
	assert.Len(t, readings, 2)

	readings, err = repo.List(ctx, ReadingFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestCameraRepositoryCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCameraRepository(db)
	ctx := context.Background()

	camera := &entities.Camera{Name: "entrance", URL: "rtsp://cam1/stream", Location: "north gate"}
	require.NoError(t, repo.Create(ctx, camera))
	require.NotZero(t, camera.ID)

	got, err := repo.Get(ctx, camera.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.CameraStatusActive, got.Status)
	assert.Equal(t, 20, got.FPS)

	got.Status = entities.CameraStatusInactive
	require.NoError(t, repo.Save(ctx, got))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, camera.ID))
	assert.ErrorIs(t, repo.Delete(ctx, camera.ID), ErrCameraNotFound)
	_, err = repo.Get(ctx, camera.ID)
	assert.ErrorIs(t, err, ErrCameraNotFound)
}

func TestDetectionEventRepositoryListByCamera(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDetectionEventRepository(db)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		event := &entities.DetectionEvent{
			CameraID:   1,
			EventType:  "person",
			Confidence: 0.9,
			BBox:       entities.JSONFloats{10, 20, 100, 200},
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, event))
	}
	require.NoError(t, repo.Create(ctx, &entities.DetectionEvent{CameraID: 2, EventType: "fire", Confidence: 0.8}))

	events, err := repo.ListByCamera(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entities.JSONFloats{10, 20, 100, 200}, events[0].BBox)

	events, err = repo.ListByCamera(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
