package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gatewise/gatewise/internal/tokens"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTokensPurge is the task type for removing expired tokens.
	TaskTokensPurge = "tokens:purge_expired"
)

// TokensPurgePayload describes a purge run. Requested records when the run
// was scheduled, for logging.
type TokensPurgePayload struct {
	Requested time.Time `json:"requested"`
}

// NewTokensPurgeTask constructs an Asynq task.
func NewTokensPurgeTask() (*asynq.Task, error) {
	data, err := json.Marshal(TokensPurgePayload{Requested: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokensPurge, data), nil
}

// NewTokensPurgeHandler builds the handler for TaskTokensPurge tasks.
func NewTokensPurgeHandler(service *tokens.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TokensPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		removed, err := service.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("purged expired tokens",
				slog.Int64("removed", removed),
				slog.Time("requested", payload.Requested))
		}
		return nil
	}
}
