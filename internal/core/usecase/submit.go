package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

const (
	defaultSlideCount = 10
	maxSlideCount     = 40
)

type SubmitDeckUseCase struct {
	repo    ports.DeckJobRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitDeckUseCase(
	repo ports.DeckJobRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitDeckUseCase {
	return &SubmitDeckUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *SubmitDeckUseCase) Submit(
	ctx context.Context,
	req domain.DeckRequest,
	filename, mimeType string,
	body io.Reader,
) (*domain.DeckJob, error) {
	req, err := normalizeDeckRequest(req)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	job := &domain.DeckJob{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		DeckRequest: req,
		Status:      domain.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create deck job: %w", err)
	}

	if err := uc.queue.PublishDeckRequested(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish deck request: %w", err)
	}

	return job, nil
}

func normalizeDeckRequest(req domain.DeckRequest) (domain.DeckRequest, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.Presenter = strings.TrimSpace(req.Presenter)
	if req.Topic == "" {
		return req, domain.WrapError(domain.ErrInvalidInput, "submit deck", errors.New("topic is required"))
	}
	if req.Presenter == "" {
		return req, domain.WrapError(domain.ErrInvalidInput, "submit deck", errors.New("presenter is required"))
	}
	switch {
	case req.NumSlides <= 0:
		req.NumSlides = defaultSlideCount
	case req.NumSlides > maxSlideCount:
		return req, domain.WrapError(domain.ErrInvalidInput, "submit deck", fmt.Errorf("num_slides must be at most %d", maxSlideCount))
	}
	return req, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
