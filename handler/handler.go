package handler

import (
	"context"
	"encoding/json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"reelstream/dto"
	"reelstream/entities"
	"reelstream/pkg/queue"
	"reelstream/repository"
	"reelstream/service"
)

type ServiceDependencies struct {
	TranscodeService service.Service
	Repo             repository.AssetRepository
	Queue            *queue.Queue[*entities.VideoAsset]
}

// JobHandler feeds queue-delivered transcode requests through the same
// serial TranscodeQueue the HTTP intake uses, so at most one encode runs at
// a time regardless of intake path.
func JobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.JobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal job message")
		return err
	}

	outcome := <-deps.Queue.Enqueue(func(ctx context.Context) (*entities.VideoAsset, error) {
		return deps.TranscodeService.Process(ctx, job)
	})
	return outcome.Err
}
