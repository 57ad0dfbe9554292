package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqi-platform/internal/models"
)

func insert(t *testing.T, repo Repository, sensorID int64, aqi float64) *models.SensorReading {
	t.Helper()
	r := &models.SensorReading{SensorID: sensorID, PredictedAQI: aqi, Category: "x"}
	require.NoError(t, repo.InsertReading(context.Background(), r))
	return r
}

func TestSeedCatalog(t *testing.T) {
	regions, sensors := SeedCatalog()
	require.Len(t, regions, 10)
	require.Len(t, sensors, 20)

	assert.Equal(t, "Mumbai", regions[0].Name)
	assert.Equal(t, "Navi Mumbai", regions[9].Name)
	for i, s := range sensors {
		assert.Equal(t, int64(i+1), s.ID)
		assert.Equal(t, int64(i/2+1), s.RegionID)
		assert.True(t, s.IsActive)
	}
	assert.Equal(t, "MH_NAVI_MUMBAI_02", sensors[19].SensorCode)
}

func TestMemory_LastPredictionsOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewSeededMemoryRepository()

	for i := 1; i <= 8; i++ {
		insert(t, repo, 1, float64(i))
	}
	insert(t, repo, 2, 999)

	got, err := repo.LastPredictions(ctx, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8}, got)

	got, err = repo.LastPredictions(ctx, 3, 6)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_SequenceOrdersIdenticalTimestamps(t *testing.T) {
	ctx := context.Background()
	repo := NewSeededMemoryRepository()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := &models.SensorReading{SensorID: 5, PredictedAQI: float64(10 * (i + 1)), Timestamp: ts}
		require.NoError(t, repo.InsertReading(ctx, r))
	}

	got, err := repo.LastPredictions(ctx, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 30}, got)
}

func TestMemory_ConcurrentInsertsAssignUniqueSeq(t *testing.T) {
	repo := NewSeededMemoryRepository()

	var wg sync.WaitGroup
	seqs := make([]int64, 100)
	for i := range seqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := &models.SensorReading{SensorID: int64(i%20 + 1)}
			if err := repo.InsertReading(context.Background(), r); err == nil {
				seqs[i] = r.Seq
			}
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, s := range seqs {
		assert.NotZero(t, s)
		assert.False(t, seen[s], "duplicate seq %d", s)
		seen[s] = true
	}
}

func TestMemory_InsertUnknownSensor(t *testing.T) {
	repo := NewSeededMemoryRepository()
	err := repo.InsertReading(context.Background(), &models.SensorReading{SensorID: 99})

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "sensor", nf.Resource)
	assert.False(t, nf.IsTransient())
}

func TestMemory_RegionQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewSeededMemoryRepository()

	// Mumbai: sensors 1, 2. Pune: 3, 4. Chandrapur: 15.
	insert(t, repo, 1, 400)
	insert(t, repo, 1, 100)
	insert(t, repo, 2, 200)
	insert(t, repo, 3, 90)
	insert(t, repo, 15, 450)

	latest, err := repo.LatestPerSensor(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 4)
	assert.Equal(t, int64(15), latest[0].SensorID)
	assert.Equal(t, "Chandrapur", latest[0].Region)
	assert.Equal(t, 200.0, latest[1].AQI)
	assert.Equal(t, 100.0, latest[2].AQI, "only the newest reading per sensor")

	top, err := repo.TopPolluted(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, models.RegionSummary{Region: "Chandrapur", AQI: 450}, top[0])
	assert.Equal(t, models.RegionSummary{Region: "Mumbai", AQI: 150}, top[1])
	assert.Equal(t, "Pune", top[2].Region)

	top, err = repo.TopPolluted(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	history, err := repo.RegionHistory(ctx, 1, 50)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []float64{200, 100, 400}, []float64{history[0].AQI, history[1].AQI, history[2].AQI})

	history, err = repo.RegionHistory(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = repo.RegionHistory(ctx, 42, 50)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestMemory_SensorLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSeededMemoryRepository()

	s := &models.Sensor{SensorCode: "MH_PUNE_03", RegionID: 2, Latitude: 18.5, Longitude: 73.8, Radius: 500, IsActive: true}
	require.NoError(t, repo.CreateSensor(ctx, s))
	assert.Equal(t, int64(21), s.ID)

	var conflict *ConflictError
	assert.True(t, errors.As(repo.CreateSensor(ctx, &models.Sensor{SensorCode: "MH_PUNE_03", RegionID: 2}), &conflict))

	var nf *NotFoundError
	assert.True(t, errors.As(repo.CreateSensor(ctx, &models.Sensor{SensorCode: "X", RegionID: 77}), &nf))

	require.NoError(t, repo.SetSensorActive(ctx, 21, false))
	active, err := repo.ListActiveSensors(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 20)

	all, err := repo.ListSensors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 21)
	assert.False(t, all[20].IsActive)

	insert(t, repo, 21, 80)
	require.NoError(t, repo.DeleteSensor(ctx, 21))
	latest, err := repo.LatestPerSensor(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	assert.True(t, errors.As(repo.DeleteSensor(ctx, 21), &nf))
	assert.True(t, errors.As(repo.SetSensorActive(ctx, 21, true), &nf))
}

func TestMemory_Admins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	a := &models.Admin{Username: "ops", Email: "ops@example.com", PasswordHash: "h"}
	require.NoError(t, repo.CreateAdmin(ctx, a))
	assert.Equal(t, int64(1), a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	var conflict *ConflictError
	require.True(t, errors.As(repo.CreateAdmin(ctx, &models.Admin{Username: "ops", Email: "o@x"}), &conflict))
	assert.Equal(t, "username", conflict.Field)
	require.True(t, errors.As(repo.CreateAdmin(ctx, &models.Admin{Username: "b", Email: "OPS@example.com"}), &conflict))
	assert.Equal(t, "email", conflict.Field)

	got, err := repo.GetAdminByUsername(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)

	_, err = repo.GetAdminByUsername(ctx, "nobody")
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}
