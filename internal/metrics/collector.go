package metrics

import (
	"context"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/types"
	"nodeconductor/logger"
)

// Collector counts lifecycle events and reports the backups with a running task.
type Collector struct {
	events   *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
	backups  database.BackupRepository
}

func NewCollector(backups database.BackupRepository) *Collector {
	return &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeconductor_backup_events_total",
			Help: "Number of backup lifecycle events by type",
		}, []string{"event_type"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nodeconductor_backups_in_flight",
			Help: "Number of backups waiting for a task by state",
		}, []string{"state"}),
		backups: backups,
	}
}

// Register adds the collector's metrics to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if err := reg.Register(c.events); err != nil {
		return err
	}
	return reg.Register(c.inFlight)
}

// Run counts events published on bus until ctx is done.
func (c *Collector) Run(ctx context.Context, bus eventbus.Bus) {
	ch := bus.Register(eventbus.AllEvents)
	defer bus.Unregister(eventbus.AllEvents, ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.Observe(ev)
		}
	}
}

func (c *Collector) Observe(ev eventbus.Event) {
	c.events.WithLabelValues(string(ev.Type)).Inc()
}

// Refresh recomputes the in-flight gauge from the database.
func (c *Collector) Refresh(ctx context.Context) error {
	backups, err := c.backups.FindInFlight(ctx)
	if err != nil {
		logger.Warn("failed to refresh in-flight backups", zap.Error(err))
		return err
	}

	counts := make(map[types.BackupState]int)
	for _, bk := range backups {
		counts[bk.State]++
	}
	for _, state := range types.InFlightBackupStates {
		c.inFlight.WithLabelValues(state.String()).Set(float64(counts[state]))
	}
	return nil
}
