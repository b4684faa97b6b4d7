package usecase

import (
	"context"
	"fmt"
	"time"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	apperrors "github.com/allisson/storefront/internal/errors"
)

// deadLetterUseCase implements DeadLetterUseCase.
type deadLetterUseCase struct {
	deadLetterRepo DeadLetterRepository
}

// List returns dead letters newest first.
func (d *deadLetterUseCase) List(ctx context.Context, offset, limit int) ([]*dispatchDomain.DeadLetter, error) {
	deadLetters, err := d.deadLetterRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}

	return deadLetters, nil
}

// DeleteOlderThan removes dead letters created more than days ago. With dryRun it only
// counts them.
func (d *deadLetterUseCase) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("%w: days must be zero or positive, got %d", apperrors.ErrInvalidInput, days)
	}

	olderThan := time.Now().UTC().AddDate(0, 0, -days)

	count, err := d.deadLetterRepo.DeleteOlderThan(ctx, olderThan, dryRun)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete dead letters")
	}

	return count, nil
}

// NewDeadLetterUseCase creates a new DeadLetterUseCase.
func NewDeadLetterUseCase(deadLetterRepo DeadLetterRepository) DeadLetterUseCase {
	return &deadLetterUseCase{
		deadLetterRepo: deadLetterRepo,
	}
}
