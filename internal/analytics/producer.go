package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	"github.com/domespa/digital-store-happykids-sub002/pkg/kafka"
	"github.com/domespa/digital-store-happykids-sub002/pkg/logger"
)

const (
	// TopicSearchEvents is the Kafka topic search observations are
	// published to.
	TopicSearchEvents = "store.search.events"

	// EventSearchPerformed is emitted once per free-text search request.
	EventSearchPerformed = "search.performed"

	aggregateTypeSearch = "search"
	eventSource         = "catalog-search"
)

// SearchPerformedData is the payload of a search.performed event.
type SearchPerformedData struct {
	Query       string               `json:"query"`
	UserID      string               `json:"user_id,omitempty"`
	ClientIP    string               `json:"client_ip,omitempty"`
	UserAgent   string               `json:"user_agent,omitempty"`
	ResultCount int                  `json:"result_count"`
	DurationMs  int64                `json:"duration_ms"`
	Filters     domain.SearchFilters `json:"filters"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Publisher is the event-publishing capability the producer is built on,
// satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Producer emits search analytics events through a circuit breaker so a
// broker outage trips fast instead of stalling every emission goroutine
// on write timeouts.
type Producer struct {
	publisher Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    *slog.Logger
}

// NewProducer creates an analytics producer on top of an event publisher.
func NewProducer(publisher Publisher, log *slog.Logger) *Producer {
	settings := gobreaker.Settings{
		Name:        "search-analytics",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Producer{
		publisher: publisher,
		breaker:   gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:    log,
	}
}

// SearchPerformed publishes one search observation. Callers treat failures
// as best-effort: the error is returned for logging only.
func (p *Producer) SearchPerformed(ctx context.Context, data SearchPerformedData) error {
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now().UTC()
	}

	event, err := kafka.NewEvent(EventSearchPerformed, uuid.New().String(), aggregateTypeSearch, eventSource, data)
	if err != nil {
		return fmt.Errorf("build search event: %w", err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(ctx, TopicSearchEvents, event)
	})
	if err != nil {
		return fmt.Errorf("publish search event: %w", err)
	}

	p.logger.DebugContext(ctx, "search event emitted",
		slog.String("query", data.Query),
		slog.Int("result_count", data.ResultCount),
	)
	return nil
}
