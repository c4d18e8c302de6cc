package render

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/aliskhannn/thumbor/internal/model"
	"github.com/aliskhannn/thumbor/internal/spec"
)

const originalDir = "original"

// ErrSourceNotFound is returned when the source image of a render does not exist.
var ErrSourceNotFound = errors.New("source image not found")

// fileStorage defines the interface for storing files (e.g., local filesystem or S3).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// producer defines the interface for enqueueing render jobs into a message broker (e.g., Kafka).
type producer interface {
	Produce(ctx context.Context, job model.Render) error
}

// processor renders a job and stores the result.
type processor interface {
	Process(ctx context.Context, job model.Render) (model.Render, error)
}

// repository persists render jobs.
type repository interface {
	SaveRender(ctx context.Context, job model.Render) (uuid.UUID, error)
	GetRender(ctx context.Context, id uuid.UUID) (model.Render, error)
	UpdateRender(ctx context.Context, id uuid.UUID, path, status string) error
}

// Service provides business logic for rendering pipelines over stored images.
// Rendered results are cached in storage under a name derived from the token
// and the source path, so repeated requests for the same URL render once.
type Service struct {
	fileStorage fileStorage
	producer    producer
	processor   processor
	repo        repository

	inflight singleflight.Group
}

// NewService creates a new Service.
func NewService(fs fileStorage, p producer, proc processor, repo repository) *Service {
	return &Service{
		fileStorage: fs,
		producer:    p,
		processor:   proc,
		repo:        repo,
	}
}

// Upload stores a source image under original/ and returns its path.
func (s *Service) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	dst, err := s.fileStorage.Save(ctx, originalDir, filename, file)
	if err != nil {
		return "", fmt.Errorf("upload: failed to save file: %w", err)
	}

	return dst, nil
}

// Render returns the JPEG produced by running the token's pipeline over source.
// The boolean reports whether the result came from the cache. An invalid token
// fails with a token decode error before any storage access.
func (s *Service) Render(ctx context.Context, token, source string) (io.ReadCloser, bool, error) {
	if _, err := spec.ParseToken(token); err != nil {
		return nil, false, fmt.Errorf("render: %w", err)
	}

	job := model.Render{Token: token, Source: source}

	cached, err := s.fileStorage.Exists(ctx, job.CachePath())
	if err != nil {
		return nil, false, fmt.Errorf("render: failed to check cache: %w", err)
	}

	if !cached {
		// Concurrent requests for the same result share one rendering, which
		// outlives the caller that started it.
		_, err, _ = s.inflight.Do(job.CachePath(), func() (any, error) {
			return s.render(context.WithoutCancel(ctx), job)
		})
		if err != nil {
			return nil, false, fmt.Errorf("render: %w", err)
		}
	}

	r, err := s.fileStorage.Load(ctx, job.CachePath())
	if err != nil {
		return nil, false, fmt.Errorf("render: failed to load result: %w", err)
	}

	return r, cached, nil
}

func (s *Service) render(ctx context.Context, job model.Render) (model.Render, error) {
	ok, err := s.fileStorage.Exists(ctx, job.Source)
	if err != nil {
		return model.Render{}, fmt.Errorf("failed to check source: %w", err)
	}
	if !ok {
		return model.Render{}, fmt.Errorf("%s: %w", job.Source, ErrSourceNotFound)
	}

	return s.processor.Process(ctx, job)
}

// Evict removes the cached result of a pipeline over source, so the next
// request renders it again. Evicting a result that is not cached is not an error.
func (s *Service) Evict(ctx context.Context, token, source string) error {
	if _, err := spec.ParseToken(token); err != nil {
		return fmt.Errorf("evict: %w", err)
	}

	job := model.Render{Token: token, Source: source}
	if err := s.fileStorage.Delete(ctx, job.CachePath()); err != nil {
		return fmt.Errorf("evict: failed to delete cached result: %w", err)
	}

	return nil
}

// Enqueue records a pending render job and publishes it for asynchronous
// processing. Returns the job ID.
func (s *Service) Enqueue(ctx context.Context, token, source string) (uuid.UUID, error) {
	if _, err := spec.ParseToken(token); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue: %w", err)
	}

	ok, err := s.fileStorage.Exists(ctx, source)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue: failed to check source: %w", err)
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("enqueue: %s: %w", source, ErrSourceNotFound)
	}

	job := model.Render{Token: token, Source: source, Status: model.StatusPending}

	id, err := s.repo.SaveRender(ctx, job)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue: %w", err)
	}
	job.ID = id

	if err := s.producer.Produce(ctx, job); err != nil {
		if uerr := s.repo.UpdateRender(ctx, id, "", model.StatusFailed); uerr != nil {
			err = errors.Join(err, uerr)
		}
		return uuid.Nil, fmt.Errorf("enqueue: failed to publish job: %w", err)
	}

	return id, nil
}

// ProcessRender runs a queued job and records its outcome.
func (s *Service) ProcessRender(ctx context.Context, job model.Render) (uuid.UUID, error) {
	cached, err := s.fileStorage.Exists(ctx, job.CachePath())
	if err != nil {
		return uuid.Nil, fmt.Errorf("process render: failed to check cache: %w", err)
	}

	path := job.CachePath()
	if !cached {
		v, err, _ := s.inflight.Do(job.CachePath(), func() (any, error) {
			return s.render(context.WithoutCancel(ctx), job)
		})
		if err != nil {
			if uerr := s.repo.UpdateRender(ctx, job.ID, "", model.StatusFailed); uerr != nil {
				err = errors.Join(err, uerr)
			}
			return uuid.Nil, fmt.Errorf("process render: %w", err)
		}
		path = v.(model.Render).Path
	}

	if err := s.repo.UpdateRender(ctx, job.ID, path, model.StatusProcessed); err != nil {
		return uuid.Nil, fmt.Errorf("process render: %w", err)
	}

	return job.ID, nil
}

// GetRender returns a render job by ID.
func (s *Service) GetRender(ctx context.Context, id uuid.UUID) (model.Render, error) {
	job, err := s.repo.GetRender(ctx, id)
	if err != nil {
		return model.Render{}, fmt.Errorf("get render: %w", err)
	}

	return job, nil
}
