package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	dispatchUseCase "github.com/allisson/storefront/internal/dispatch/usecase"
)

// deadLetterOutput is the JSON shape of a dead letter.
type deadLetterOutput struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	SubjectID      int64     `json:"subject_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	LastError      string    `json:"last_error"`
	AttemptCount   int       `json:"attempt_count"`
	FirstFailedAt  time.Time `json:"first_failed_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunListDeadLetters prints dead-lettered actions, newest first.
func RunListDeadLetters(
	ctx context.Context,
	deadLetterUseCase dispatchUseCase.DeadLetterUseCase,
	writer io.Writer,
	offset, limit int,
	format string,
) error {
	if offset < 0 {
		return fmt.Errorf("offset must not be negative, got: %d", offset)
	}
	if limit < 1 || limit > 1000 {
		return fmt.Errorf("limit must be between 1 and 1000, got: %d", limit)
	}

	deadLetters, err := deadLetterUseCase.List(ctx, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}

	if format == "json" {
		output := make([]deadLetterOutput, 0, len(deadLetters))
		for _, dl := range deadLetters {
			output = append(output, deadLetterOutput{
				ID:             dl.ID.String(),
				Kind:           string(dl.Kind),
				SubjectID:      dl.SubjectID,
				IdempotencyKey: dl.IdempotencyKey,
				LastError:      dl.LastError,
				AttemptCount:   dl.AttemptCount,
				FirstFailedAt:  dl.FirstFailedAt,
				CreatedAt:      dl.CreatedAt,
			})
		}
		return writeJSON(writer, map[string]any{"data": output})
	}

	if len(deadLetters) == 0 {
		_, err := fmt.Fprintln(writer, "No dead letters found")
		return err
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tKIND\tSUBJECT\tATTEMPTS\tCREATED AT\tLAST ERROR")
	for _, dl := range deadLetters {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			dl.ID,
			dl.Kind,
			dl.SubjectID,
			dl.AttemptCount,
			dl.CreatedAt.Format(time.RFC3339),
			dl.LastError,
		)
	}
	return tw.Flush()
}

// RunCleanDeadLetters deletes dead letters older than the specified number of days.
// Supports dry-run mode to preview deletion count and both text/JSON output formats.
func RunCleanDeadLetters(
	ctx context.Context,
	deadLetterUseCase dispatchUseCase.DeadLetterUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning dead letters",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	count, err := deadLetterUseCase.DeleteOlderThan(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to delete dead letters: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"count":   count,
			"days":    days,
			"dry_run": dryRun,
		}); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d dead letter(s) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d dead letter(s) older than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}
