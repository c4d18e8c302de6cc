package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/thumbor/internal/model"
	"github.com/aliskhannn/thumbor/internal/processor"
	rendersvc "github.com/aliskhannn/thumbor/internal/service/render"
	"github.com/aliskhannn/thumbor/internal/spec"
)

// ErrInvalidJob is returned for messages that do not carry a render job.
var ErrInvalidJob = errors.New("invalid render job")

// service defines the interface for processing queued render jobs.
type service interface {
	ProcessRender(ctx context.Context, job model.Render) (uuid.UUID, error)
}

// RequestedHandler handles Kafka messages for requested renders.
type RequestedHandler struct {
	service service
}

// NewRequestedHandler creates a new handler with the given service.
func NewRequestedHandler(s service) *RequestedHandler {
	return &RequestedHandler{service: s}
}

// Handle unmarshals a render job and runs it. Jobs that can never succeed
// (a bad token, a missing source or an impossible size) are reported as handled so the consumer
// commits them; the service has already marked them failed.
func (h *RequestedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var job model.Render
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("unmarshal render job: %w: %v", ErrInvalidJob, err)
	}
	if job.ID == uuid.Nil || job.Token == "" || job.Source == "" {
		return fmt.Errorf("unmarshal render job: %w: missing id, token or source", ErrInvalidJob)
	}

	id, err := h.service.ProcessRender(ctx, job)
	if err != nil {
		if spec.IsDecodeError(err) ||
			errors.Is(err, rendersvc.ErrSourceNotFound) ||
			errors.Is(err, processor.ErrInvalidSize) {
			zlog.Logger.Warn().
				Err(err).
				Str("id", job.ID.String()).
				Msg("dropping render job")
			return nil
		}

		return fmt.Errorf("process render job: %w", err)
	}

	zlog.Logger.Info().
		Str("id", id.String()).
		Str("source", job.Source).
		Msg("render processed")

	return nil
}
