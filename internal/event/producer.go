package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	pkgkafka "github.com/ilsegaertner/CUB-Film-data/pkg/kafka"
	"github.com/ilsegaertner/CUB-Film-data/pkg/logger"
)

// Event types for user domain events. All of them go to one topic, keyed
// by user ID, so consumers see a user's history in order.
const (
	TypeUserRegistered      = "user.registered"
	TypeUserUpdated         = "user.updated"
	TypeUserDeleted         = "user.deleted"
	TypeUserFavoriteAdded   = "user.favorite_added"
	TypeUserFavoriteRemoved = "user.favorite_removed"
	AggregateTypeUser       = "user"
	SourceService           = "cub-film-data"
)

// UserData is the payload of registered and updated events. It never
// carries the password hash.
type UserData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserDeletedData is the payload of a user.deleted event.
type UserDeletedData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// FavoriteData is the payload of favorite added and removed events.
type FavoriteData struct {
	UserID  string `json:"user_id"`
	MovieID string `json:"movie_id"`
}

// Publisher is the transport the producer writes through.
// *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes user domain events.
type Producer struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger
}

// NewProducer creates a producer writing to topic. A nil publisher yields a
// producer that drops every event, for deployments without Kafka.
func NewProducer(publisher Publisher, topic string, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TypeUserRegistered, user.ID, UserData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TypeUserUpdated, user.ID, UserData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TypeUserDeleted, user.ID, UserDeletedData{
		ID:       user.ID,
		Username: user.Username,
	})
}

// PublishFavoriteAdded publishes a user.favorite_added event.
func (p *Producer) PublishFavoriteAdded(ctx context.Context, userID, movieID string) error {
	return p.publish(ctx, TypeUserFavoriteAdded, userID, FavoriteData{UserID: userID, MovieID: movieID})
}

// PublishFavoriteRemoved publishes a user.favorite_removed event.
func (p *Producer) PublishFavoriteRemoved(ctx context.Context, userID, movieID string) error {
	return p.publish(ctx, TypeUserFavoriteRemoved, userID, FavoriteData{UserID: userID, MovieID: movieID})
}

func (p *Producer) publish(ctx context.Context, eventType, userID string, data any) error {
	if p.publisher == nil {
		return nil
	}

	evt, err := pkgkafka.NewEvent(eventType, userID, AggregateTypeUser, SourceService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, p.topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published user event",
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
	)
	return nil
}
