package metrics

import (
	"context"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http/httptest"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/types"
	"path/filepath"
	"testing"
	"time"
)

func TestCollectorCountsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New()
	c := NewCollector(nil)
	require.NoError(t, c.Register(prometheus.NewRegistry()))

	go c.Run(ctx, bus)
	// Run registers asynchronously
	assert.Eventually(t, func() bool {
		bus.Publish(eventbus.Event{Type: eventbus.BackupErred})
		return testutil.ToFloat64(c.events.WithLabelValues(string(eventbus.BackupErred))) > 0
	}, time.Second, 10*time.Millisecond)

	before := testutil.ToFloat64(c.events.WithLabelValues(string(eventbus.ScheduleExecuted)))
	c.Observe(eventbus.Event{Type: eventbus.ScheduleExecuted})
	c.Observe(eventbus.Event{Type: eventbus.ScheduleExecuted})
	assert.Equal(t, before+2, testutil.ToFloat64(c.events.WithLabelValues(string(eventbus.ScheduleExecuted))))
}

func TestCollectorRefresh(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(database.DriverSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "metrics.db")))
	require.NoError(t, err)

	source := &types.BackupSource{ID: uuid.New(), Kind: "volume", Name: "data"}
	require.NoError(t, database.NewBackupSourceRepository(db).Save(ctx, source))

	backups := database.NewBackupRepository(db)
	for _, state := range []types.BackupState{
		types.BackupStateBackingUp,
		types.BackupStateBackingUp,
		types.BackupStateDeleting,
		types.BackupStateReady,
	} {
		bk := types.NewBackup(source, nil, time.Now().UTC())
		bk.State = state
		require.NoError(t, backups.Create(ctx, bk))
	}

	c := NewCollector(backups)
	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.inFlight.WithLabelValues("BACKING_UP")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight.WithLabelValues("RESTORING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inFlight.WithLabelValues("DELETING")))
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(nil)
	require.NoError(t, c.Register(reg))
	c.Observe(eventbus.Event{Type: eventbus.BackupCreationSucceeded})

	srv := httptest.NewServer(NewServer(":0", reg).Handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `nodeconductor_backup_events_total{event_type="backup_creation_succeeded"} 1`)
}
