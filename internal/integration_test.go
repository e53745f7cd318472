package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"appliance-reserve-backend/config"
	"appliance-reserve-backend/internal/api"
	"appliance-reserve-backend/internal/model"
	"appliance-reserve-backend/internal/notify"
	"appliance-reserve-backend/internal/reserve"
	"appliance-reserve-backend/internal/status"
	"appliance-reserve-backend/internal/store"
	"appliance-reserve-backend/internal/sweeper"
)

// TestReservationLifecycle walks an appliance through reserve, near-expiry
// reads, expiry sweep and release, checking the database, the derived
// statuses served over HTTP and the events fanned out at each step.
func TestReservationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	require.NoError(t, testDB.AutoMigrate(&model.Appliance{}, &model.PushSubscription{}))

	require.NoError(t, testDB.Create(&model.Appliance{ID: 1, Name: "Washer 1"}).Error)
	require.NoError(t, testDB.Create(&model.Appliance{ID: 2, Name: "Dryer 1"}).Error)

	// A hand-cranked clock shared by every component.
	current := time.Unix(100_000, 0).UTC()
	clock := func() time.Time { return current }

	appStore := store.NewGormStore(testDB)
	hub := notify.NewHub(16)
	events, cancelEvents := hub.Subscribe()
	defer cancelEvents()

	mutator := reserve.NewMutator(appStore, clock, hub, "origin-server", 120)
	sweepSvc := sweeper.New(appStore, clock, hub, "origin-server", 30*time.Second)

	handler := api.NewHandler(appStore, mutator, hub, clock, nil)
	router := api.NewRouter(handler, &config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	})

	nextEvent := func(t *testing.T) status.Event {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
			return status.Event{}
		}
	}

	t.Run("reserve marks the appliance in use", func(t *testing.T) {
		_, err := mutator.Reserve(context.Background(), 1, 10)
		require.NoError(t, err)

		var rec model.Appliance
		require.NoError(t, testDB.First(&rec, 1).Error)
		require.NotNil(t, rec.ReservationEnd)
		assert.Equal(t, current.Add(10*time.Minute).Unix(), rec.ReservationEnd.Unix())

		ev := nextEvent(t)
		assert.Equal(t, status.EventReserved, ev.Kind)
		assert.Equal(t, int64(1), ev.RecordID)
	})

	t.Run("list serves the derived view", func(t *testing.T) {
		current = current.Add(5 * time.Minute)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/appliances", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var statuses []status.Derived
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
		require.Len(t, statuses, 2)
		assert.Equal(t, status.StateInUse, statuses[0].State)
		require.NotNil(t, statuses[0].RemainingMs)
		assert.Equal(t, int64(5*60*1000), *statuses[0].RemainingMs)
		assert.Equal(t, status.StateAvailable, statuses[1].State)
	})

	t.Run("a sweep before expiry changes nothing", func(t *testing.T) {
		cleared, err := sweepSvc.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, cleared)
		assert.Empty(t, events)
	})

	t.Run("the sweep after expiry clears and announces", func(t *testing.T) {
		current = current.Add(6 * time.Minute) // 11 minutes after reserve

		cleared, err := sweepSvc.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, cleared)

		var rec model.Appliance
		require.NoError(t, testDB.First(&rec, 1).Error)
		assert.Nil(t, rec.ReservationEnd)
		assert.Equal(t, current.Unix(), rec.UpdatedAt.Unix())

		ev := nextEvent(t)
		assert.Equal(t, status.EventExpired, ev.Kind)
		assert.Equal(t, int64(1), ev.RecordID)
		assert.Equal(t, status.StateAvailable, ev.Status.State)

		// Sweeping again finds nothing.
		cleared, err = sweepSvc.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, cleared)
		assert.Empty(t, events)
	})

	t.Run("release over HTTP is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/api/appliances/2/release", nil)
			router.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var st status.Derived
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
			assert.Equal(t, status.StateAvailable, st.State)

			ev := nextEvent(t)
			assert.Equal(t, status.EventReleased, ev.Kind)
			assert.Equal(t, int64(2), ev.RecordID)
		}
	})
}

// TestRestartReconciliation covers the restart path: a reservation expires
// while no process is running, and the first sweep of the next process
// clears it without any dedicated resume logic.
func TestRestartReconciliation(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:restart?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	require.NoError(t, testDB.AutoMigrate(&model.Appliance{}))

	// The record an earlier process left behind: reserved until a point
	// that has since passed.
	staleEnd := time.Unix(50_000, 0).UTC()
	require.NoError(t, testDB.Create(&model.Appliance{ID: 1, Name: "Washer 1", ReservationEnd: &staleEnd}).Error)

	now := staleEnd.Add(48 * time.Hour)
	appStore := store.NewGormStore(testDB)
	hub := notify.NewHub(4)
	events, cancel := hub.Subscribe()
	defer cancel()

	svc := sweeper.New(appStore, func() time.Time { return now }, hub, "origin-restarted", 30*time.Second)

	cleared, err := svc.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	var rec model.Appliance
	require.NoError(t, testDB.First(&rec, 1).Error)
	assert.Nil(t, rec.ReservationEnd)

	select {
	case ev := <-events:
		assert.Equal(t, status.EventExpired, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected an Expired event for the stale reservation")
	}
}
