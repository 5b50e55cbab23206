package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dukex/mixpanel"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/platform/observability"
)

const (
	sinkMixpanel         = "mixpanel"
	defaultMixpanelQueue = 256
	mixpanelCloseTimeout = 5 * time.Second
)

type mixpanelAPI interface {
	Track(distinctID, eventName string, e *mixpanel.Event) error
	Update(distinctID string, u *mixpanel.Update) error
}

var mixpanelFactory = func(token, apiURL string) mixpanelAPI {
	return mixpanel.New(token, apiURL)
}

var errMixpanelCloseTimeout = errors.New("analytics: mixpanel queue did not drain before timeout")

// MixpanelConfig holds the project token and API host.
type MixpanelConfig struct {
	Token     string
	APIURL    string
	QueueSize int
}

type mixpanelJob struct {
	ev       Event
	identify bool
}

// Mixpanel delivers events from a bounded queue drained by a single worker.
// A full queue drops events rather than blocking request handlers.
type Mixpanel struct {
	cfg    MixpanelConfig
	logger *zap.Logger

	once   sync.Once
	client mixpanelAPI

	mu     sync.RWMutex
	closed bool
	queue  chan mixpanelJob
	done   chan struct{}
}

// NewMixpanel returns an uninitialised Mixpanel sink; call Init before use.
func NewMixpanel(cfg MixpanelConfig, logger *zap.Logger) *Mixpanel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultMixpanelQueue
	}
	return &Mixpanel{cfg: cfg, logger: logger}
}

// Init configures the client and starts the delivery worker once. A missing
// token logs a warning and leaves the sink permanently disabled.
func (m *Mixpanel) Init() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		if m.cfg.Token == "" {
			m.logger.Warn("analytics: mixpanel token missing; sink disabled")
			return
		}
		m.client = mixpanelFactory(m.cfg.Token, m.cfg.APIURL)
		m.queue = make(chan mixpanelJob, m.cfg.QueueSize)
		m.done = make(chan struct{})
		go m.run()
	})
}

func (m *Mixpanel) Name() string { return sinkMixpanel }

func (m *Mixpanel) Enabled() bool { return m != nil && m.client != nil }

func (m *Mixpanel) Capture(_ context.Context, ev Event) {
	m.enqueue(mixpanelJob{ev: ev})
}

func (m *Mixpanel) Identify(distinctID string, props map[string]any) {
	m.enqueue(mixpanelJob{ev: Event{DistinctID: distinctID, Properties: props}, identify: true})
}

func (m *Mixpanel) enqueue(job mixpanelJob) {
	if !m.Enabled() {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		observability.EventsDropped.WithLabelValues(sinkMixpanel, "closed").Inc()
		return
	}
	select {
	case m.queue <- job:
	default:
		observability.EventsDropped.WithLabelValues(sinkMixpanel, "queue_full").Inc()
		m.logger.Debug("analytics: mixpanel queue full; dropping event", zap.String("event", job.ev.Name))
	}
}

func (m *Mixpanel) run() {
	defer close(m.done)
	for job := range m.queue {
		m.deliver(job)
	}
}

func (m *Mixpanel) deliver(job mixpanelJob) {
	props := job.ev.Properties
	userProps, _ := props[PropSet].(map[string]any)
	delete(props, PropSet)

	if job.identify {
		userProps = props
	} else {
		var ts *time.Time
		if !job.ev.Timestamp.IsZero() {
			t := job.ev.Timestamp
			ts = &t
		}
		if err := m.client.Track(job.ev.DistinctID, job.ev.Name, &mixpanel.Event{
			Timestamp:  ts,
			Properties: props,
		}); err != nil {
			observability.EventsDropped.WithLabelValues(sinkMixpanel, "delivery").Inc()
			m.logger.Warn("analytics: mixpanel track failed", zap.String("event", job.ev.Name), zap.Error(err))
			return
		}
		observability.EventsCaptured.WithLabelValues(sinkMixpanel, job.ev.Name).Inc()
	}

	if len(userProps) == 0 {
		return
	}
	if err := m.client.Update(job.ev.DistinctID, &mixpanel.Update{
		Operation:  "$set",
		Properties: userProps,
	}); err != nil {
		m.logger.Warn("analytics: mixpanel people update failed", zap.Error(err))
	}
}

// Close stops accepting events and waits for the queue to drain.
func (m *Mixpanel) Close() error {
	if !m.Enabled() {
		return nil
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-time.After(mixpanelCloseTimeout):
		return errMixpanelCloseTimeout
	}
}
