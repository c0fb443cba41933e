package config

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// ActivityEvent is the Pub/Sub payload emitted for every stored activity log row.
type ActivityEvent struct {
	LogId         string    `json:"log_id"`
	EntityType    string    `json:"entity_type"`
	EntityId      string    `json:"entity_id"`
	ActionType    string    `json:"action_type"`
	FieldChanged  string    `json:"field_changed"`
	OldValue      *string   `json:"old_value"`
	NewValue      *string   `json:"new_value"`
	Note          string    `json:"note"`
	UserId        string    `json:"user_id"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	CorrelationId string    `json:"correlation_id,omitempty"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func getPubSubProjectID() string {
	if v := StringFromEnv("PUBSUB_PROJECT_ID", ""); v != "" {
		return v
	}
	return StringFromEnv("GOOGLE_CLOUD_PROJECT", "")
}

// ActivityTopic returns the configured topic, empty when publishing is disabled.
func ActivityTopic() string {
	return StringFromEnv("ACTIVITY_PUBSUB_TOPIC", "")
}

// getPubSubClient lazily creates the shared client. Unlike the DB/redis
// connectors it does not loop: publishing is best-effort.
func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := StringFromEnv("PUBSUB_CREDENTIALS_JSON", ""); credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Application Default Credentials
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	GetLogger().WithField("project_id", projectID).Info("pubsub client ready")
	return c, nil
}

// PublishActivityEvents publishes each event to ACTIVITY_PUBSUB_TOPIC and
// waits for the server acks. It is a no-op when the topic is not configured.
func PublishActivityEvents(ctx context.Context, events []ActivityEvent) error {
	topicName := ActivityTopic()
	if topicName == "" || len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := getPubSubClient(ctx)
	if err != nil {
		return err
	}

	t := client.Topic(topicName)
	results := make([]*pubsub.PublishResult, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		results = append(results, t.Publish(ctx, &pubsub.Message{
			Data:       data,
			Attributes: map[string]string{"entity_type": ev.EntityType, "action_type": ev.ActionType},
		}))
	}
	var firstErr error
	for _, r := range results {
		if _, err := r.Get(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
