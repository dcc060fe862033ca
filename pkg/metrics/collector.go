package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/number-bot/internal/state"
)

var (
	botEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Total number of dispatched conversation events labeled by route and status",
		},
		[]string{"route", "status"},
	)
	eventDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_event_duration_seconds",
			Help:    "Duration of conversation handlers in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	numbersAddedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_numbers_added_total",
			Help: "Numbers appended to the inventory by service",
		},
		[]string{"service"},
	)
	numbersIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_numbers_issued_total",
			Help: "Numbers handed out to users by service",
		},
		[]string{"service"},
	)
	duplicateUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_duplicate_updates_total",
			Help: "Telegram updates dropped because they were already handled",
		},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of sessions outside the idle state",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_state",
			Help: "Number of sessions per named state",
		},
		[]string{"state"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordEvent increments event counters and records handler duration.
func RecordEvent(route, status string, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botEventsTotal.WithLabelValues(route, status).Inc()
	eventDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// RecordNumbersAdded counts numbers that made it into the inventory.
func RecordNumbersAdded(service string, count int) {
	if count <= 0 {
		return
	}
	numbersAddedTotal.WithLabelValues(service).Add(float64(count))
}

// RecordNumbersIssued counts numbers handed to users.
func RecordNumbersIssued(service string, count int) {
	if count <= 0 {
		return
	}
	numbersIssuedTotal.WithLabelValues(service).Add(float64(count))
}

// RecordDuplicateUpdate counts a redelivered update that was skipped.
func RecordDuplicateUpdate() {
	duplicateUpdatesTotal.Inc()
}

// StateCollector periodically gathers session state counts and emits gauge metrics.
type StateCollector struct {
	fsm      state.StateMachine
	interval time.Duration
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm state.StateMachine, interval time.Duration) *StateCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StateCollector{fsm: fsm, interval: interval}
}

// Run polls the FSM until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return err
	}

	counts := make(map[state.State]int, len(states))
	active := 0
	for _, st := range states {
		if st == nil {
			continue
		}
		counts[st.CurrentState]++
		if st.CurrentState != state.StateIdle {
			active++
		}
	}

	activeSessions.Set(float64(active))
	sessionsByState.Reset()
	for _, tracked := range state.All() {
		sessionsByState.WithLabelValues(string(tracked)).Set(float64(counts[tracked]))
	}

	return nil
}
