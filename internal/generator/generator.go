// Package generator drives the connect, generate, persist, log and wait cycle.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Vencyderry/fitness-tracker-analytics/internal/domain"
	"github.com/Vencyderry/fitness-tracker-analytics/internal/observability"
)

// ErrPersistence wraps any insert or commit failure once connected. It is not retried.
var ErrPersistence = errors.New("persist fitness event")

const (
	defaultRetryInterval  = 2 * time.Second
	defaultTickInterval   = time.Second
	defaultPublishTimeout = 2 * time.Second
	timestampLayout       = "2006-01-02 15:04:05"
)

// Store is the storage collaborator: one durable insert per call, committed before return.
type Store interface {
	Insert(context.Context, domain.FitnessEvent) error
	Close(context.Context) error
}

// Dialer opens a Store. Errors are treated as transient and retried.
type Dialer func(context.Context) (Store, error)

// Publisher forwards committed events to a secondary sink.
type Publisher interface {
	Publish(context.Context, domain.FitnessEvent) error
}

// Option configures optional behaviour for the Generator.
type Option func(*Generator)

// WithLogger overrides the logger used for event lines and retry notices.
func WithLogger(logger *log.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(g *Generator) {
		g.clock = clock
	}
}

// WithRetryInterval sets the flat delay between connection attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.retryInterval = d
		}
	}
}

// WithTickInterval sets the pause between generated events.
func WithTickInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.tickInterval = d
		}
	}
}

// WithUsers replaces the default user roster.
func WithUsers(users []int) Option {
	return func(g *Generator) {
		g.users = append([]int(nil), users...)
	}
}

// WithPublisher streams each committed event. Publish failures are logged, never fatal.
func WithPublisher(p Publisher) Option {
	return func(g *Generator) {
		g.publisher = p
	}
}

// WithPublishTimeout bounds each Publish call. Shutdown cancels it earlier.
func WithPublishTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.publishTimeout = d
		}
	}
}

// Generator owns the storage connection and emits one event per tick until cancelled.
type Generator struct {
	dial           Dialer
	model          *domain.ActivityModel
	users          []int
	retryInterval  time.Duration
	tickInterval   time.Duration
	publisher      Publisher
	publishTimeout time.Duration
	clock          Clock
	logger         *log.Logger

	mu    sync.Mutex
	state ConnState
}

// New constructs a Generator. The loop is single threaded; Run must not be called concurrently.
func New(dial Dialer, model *domain.ActivityModel, opts ...Option) *Generator {
	g := &Generator{
		dial:           dial,
		model:          model,
		users:          append([]int(nil), domain.DefaultUserIDs...),
		retryInterval:  defaultRetryInterval,
		tickInterval:   defaultTickInterval,
		publishTimeout: defaultPublishTimeout,
		clock:          systemClock{},
		logger:         log.New(os.Stdout, "", 0),
		state:          StateDisconnected,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current connection state.
func (g *Generator) State() ConnState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Generator) setState(s ConnState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Run connects, then generates events until ctx is cancelled. Cancellation yields a nil error;
// a persistence failure is returned wrapped in ErrPersistence. The store is closed on every path.
func (g *Generator) Run(ctx context.Context) error {
	if len(g.users) == 0 {
		return domain.ErrEmptyRoster
	}

	g.setState(StateConnecting)
	conn := &connector{dial: g.dial, interval: g.retryInterval, clock: g.clock, logger: g.logger}
	store, err := conn.connect(ctx)
	if err != nil {
		g.setState(StateClosed)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	g.setState(StateConnected)

	defer func() {
		if closeErr := store.Close(context.WithoutCancel(ctx)); closeErr != nil {
			g.logger.Printf("closing database connection: %v", closeErr)
		}
		g.setState(StateClosed)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := g.tick(ctx, store); err != nil {
			return err
		}
		if !sleep(ctx, g.clock, g.tickInterval) {
			return nil
		}
	}
}

// tick generates, persists, publishes and logs exactly one event.
func (g *Generator) tick(ctx context.Context, store Store) error {
	userID, err := g.model.PickUser(g.users)
	if err != nil {
		return err
	}
	event := g.model.GenerateEvent(userID)
	event.GeneratedAt = g.clock.Now()

	// An insert that has started is allowed to finish even if shutdown was requested meanwhile.
	if err := store.Insert(context.WithoutCancel(ctx), event); err != nil {
		observability.RecordPersistError()
		return fmt.Errorf("%w (user=%d, activity=%s): %w", ErrPersistence, event.UserID, event.ActivityType, err)
	}
	observability.RecordEventPersisted(event.ActivityType, g.clock.Now())

	if g.publisher != nil {
		g.publish(ctx, event)
	}

	g.logger.Println(FormatEvent(event))
	return nil
}

func (g *Generator) publish(ctx context.Context, event domain.FitnessEvent) {
	publishCtx, cancel := context.WithTimeout(ctx, g.publishTimeout)
	defer cancel()

	if err := g.publisher.Publish(publishCtx, event); err != nil {
		observability.RecordPublishError()
		g.logger.Printf("publish event %s: %v", event.ID, err)
	}
}

// FormatEvent renders the console line for an event using its local generation time.
func FormatEvent(event domain.FitnessEvent) string {
	return fmt.Sprintf("[%s] user=%d, activity=%s, steps=%d, hr=%d, cal=%.2f",
		event.GeneratedAt.Local().Format(timestampLayout),
		event.UserID,
		event.ActivityType,
		event.Steps,
		event.HeartRate,
		event.Calories,
	)
}
