// Package notification sends the periodic statistics messages and the alarm
// alerts over a message transport.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/services/aggregation"
)

const (
	defaultWorkers   = 2
	queueSize        = 64
	publishTimeout   = 5 * time.Second
	defaultAggregate = 10 * time.Second
)

// Publisher delivers one payload to a subject or topic.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type job struct {
	subject string
	kind    string
	payload any
	frames  int
}

// Client turns alarm transitions and aggregation windows into messages.
// HandleAlarms and HandleNotification are called from the frame goroutine;
// delivery happens on a bounded worker pool so the frame path never waits
// on the network.
type Client struct {
	publisher Publisher
	logger    zerolog.Logger
	clock     alarm.Clock

	deviceID     string
	cameraID     string
	modelID      string
	subject      string
	alertSubject string
	aggregation  time.Duration

	lastSent   time.Time
	intervalID int

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the wall clock.
func WithClock(clock alarm.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// New starts the worker pool.
func New(cfg *config.Config, publisher Publisher, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if publisher == nil {
		return nil, errors.New("notification publisher is required")
	}

	c := &Client{
		publisher:    publisher,
		logger:       logger,
		clock:        time.Now,
		deviceID:     cfg.NotificationDeviceID,
		cameraID:     cfg.NotificationCameraID,
		modelID:      cfg.ModelID,
		subject:      cfg.NotificationSubject,
		alertSubject: cfg.NotificationAlertSubject,
		aggregation:  cfg.NotificationAggregationTime,
		jobs:         make(chan job, queueSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.aggregation <= 0 {
		c.aggregation = defaultAggregate
	}

	workers := cfg.NotificationWorkers
	if workers <= 0 {
		workers = defaultWorkers
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	c.lastSent = c.clock()

	c.logger.Info().
		Int("workers", workers).
		Dur("aggregation", c.aggregation).
		Str("subject", c.subject).
		Str("alert_subject", c.alertSubject).
		Msg("Notification client started")
	return c, nil
}

// HandleAlarms enqueues an alert for every alarm that just reached the
// notification state.
func (c *Client) HandleAlarms(hand, zone alarm.Status) {
	now := c.clock()
	if zone == alarm.AlarmWithNotification {
		c.enqueue(job{subject: c.alertSubject, kind: alertTypePeopleInZone, payload: c.buildAlert(AlertPeopleInZone, alertTypePeopleInZone, now)})
	}
	if hand == alarm.AlarmWithNotification {
		c.enqueue(job{subject: c.alertSubject, kind: alertTypeRaisedHand, payload: c.buildAlert(AlertRaisedHand, alertTypeRaisedHand, now)})
	}
}

// HandleNotification sends the window statistics once the aggregation time
// has elapsed since the last send. It reports whether a message was sent so
// the caller can start a new window.
func (c *Client) HandleNotification(start time.Time, agg *aggregation.Aggregator) bool {
	now := c.clock()
	if now.Sub(c.lastSent) < c.aggregation {
		return false
	}

	snapshot := agg.Clone().Snapshot()
	c.intervalID = (c.intervalID + 1) % intervalWrap
	c.enqueue(job{
		subject: c.subject,
		kind:    messageTypeMessage,
		payload: c.buildMessage(c.intervalID, start, now, snapshot),
		frames:  snapshot.Frames,
	})
	c.lastSent = now
	return true
}

func (c *Client) enqueue(j job) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.jobs <- j:
	default:
		c.logger.Warn().Str("kind", j.kind).Msg("Notification queue full, dropping message")
	}
}

func (c *Client) worker() {
	defer c.wg.Done()
	for j := range c.jobs {
		c.send(j)
	}
}

func (c *Client) send(j job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := c.publisher.Publish(ctx, j.subject, j.payload); err != nil {
		c.logger.Error().Err(err).Str("subject", j.subject).Str("kind", j.kind).Msg("Failed to publish notification")
		return
	}

	ev := c.logger.Info()
	if j.kind != messageTypeMessage {
		ev = c.logger.Warn()
	}
	ev.Str("subject", j.subject).
		Str("kind", j.kind).
		Int("frames", j.frames).
		Dur("elapsed", time.Since(start)).
		Msg("Notification published")
}

// Shutdown stops accepting messages and waits for the queue to drain.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.jobs)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
