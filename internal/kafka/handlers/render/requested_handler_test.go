package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/thumbor/internal/model"
	"github.com/aliskhannn/thumbor/internal/processor"
	rendersvc "github.com/aliskhannn/thumbor/internal/service/render"
	"github.com/aliskhannn/thumbor/internal/spec"
)

type fakeService struct {
	jobs []model.Render
	err  error
}

func (s *fakeService) ProcessRender(_ context.Context, job model.Render) (uuid.UUID, error) {
	s.jobs = append(s.jobs, job)
	if s.err != nil {
		return uuid.Nil, s.err
	}
	return job.ID, nil
}

func message(t *testing.T, job model.Render) kafka.Message {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(job.ID.String()), Value: data}
}

func TestRequestedHandlerHandle(t *testing.T) {
	job := model.Render{
		ID:     uuid.New(),
		Token:  spec.NewPipeline(spec.NewFilter(spec.FilterIslands)).Token(),
		Source: "original/cat.jpg",
		Status: model.StatusPending,
	}

	tests := []struct {
		name       string
		msg        kafka.Message
		serviceErr error
		wantErr    error
		wantCalls  int
	}{
		{
			name:      "processed",
			msg:       message(t, job),
			wantCalls: 1,
		},
		{
			name:    "not json",
			msg:     kafka.Message{Value: []byte("{")},
			wantErr: ErrInvalidJob,
		},
		{
			name:    "missing id",
			msg:     message(t, model.Render{Token: job.Token, Source: job.Source}),
			wantErr: ErrInvalidJob,
		},
		{
			name:       "bad token is dropped",
			msg:        message(t, job),
			serviceErr: fmt.Errorf("process render: %w", spec.ErrTruncated),
			wantCalls:  1,
		},
		{
			name:       "missing source is dropped",
			msg:        message(t, job),
			serviceErr: fmt.Errorf("process render: %w", rendersvc.ErrSourceNotFound),
			wantCalls:  1,
		},
		{
			name:       "invalid size is dropped",
			msg:        message(t, job),
			serviceErr: fmt.Errorf("process render: %w", processor.ErrInvalidSize),
			wantCalls:  1,
		},
		{
			name:       "transient failure is retried",
			msg:        message(t, job),
			serviceErr: errors.New("storage unavailable"),
			wantErr:    errors.New("storage unavailable"),
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.serviceErr}
			h := NewRequestedHandler(svc)

			err := h.Handle(context.Background(), tt.msg)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case tt.serviceErr != nil:
				assert.ErrorIs(t, err, tt.serviceErr)
			default:
				assert.ErrorIs(t, err, tt.wantErr)
			}

			require.Len(t, svc.jobs, tt.wantCalls)
			if tt.wantCalls > 0 {
				assert.Equal(t, job, svc.jobs[0])
			}
		})
	}
}
