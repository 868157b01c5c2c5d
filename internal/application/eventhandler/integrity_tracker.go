package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ═══════════════════════════════════════════════════════════════════════════
// INTEGRITY TRACKER CORE
// Shared machinery for the two integrity event handlers. The tracker owns
// its profiles exclusively: nothing on the command path reads or writes
// them, and its per-key locks are independent of the command path's, so
// tracking can lag without ever blocking an enrollment or progress write.
// ═══════════════════════════════════════════════════════════════════════════

// integrityTracker loads, mutates, and saves profiles under a per-key lock
// and publishes classification changes.
type integrityTracker struct {
	repo           integrity.Repository
	patternSink    integrity.PatternPublisher
	eventPublisher shared.EventPublisher
	locks          *keylock.KeyLock
	logger         *slog.Logger
}

func newIntegrityTracker(
	repo integrity.Repository,
	patternSink integrity.PatternPublisher,
	eventPublisher shared.EventPublisher,
	locks *keylock.KeyLock,
	logger *slog.Logger,
) *integrityTracker {
	return &integrityTracker{
		repo:           repo,
		patternSink:    patternSink,
		eventPublisher: eventPublisher,
		locks:          locks,
		logger:         logger,
	}
}

// update applies fn to the (possibly new) profile for key, persists it, and
// publishes the new classification when it changed.
func (t *integrityTracker) update(
	ctx context.Context,
	key shared.EnrollmentKey,
	fn func(p *integrity.Profile) error,
) error {
	t.locks.Lock(key.String())
	defer t.locks.Unlock(key.String())

	now := time.Now().UTC()

	profile, err := t.repo.Get(ctx, key)
	if err != nil {
		if !shared.IsNotFound(err) {
			return fmt.Errorf("load profile: %w", err)
		}
		profile = integrity.NewProfile(key, now)
	}

	previous := profile.Pattern

	if err := fn(profile); err != nil {
		return err
	}

	if err := t.repo.Save(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	if profile.Pattern != previous {
		t.logger.Info("learning pattern changed",
			"user_id", key.UserID.String(),
			"course_id", key.CourseID.String(),
			"previous", previous.String(),
			"pattern", profile.Pattern.String(),
			"flags", profile.FlagStrings(),
		)

		if t.patternSink != nil {
			if err := t.patternSink.PublishPattern(ctx, key, profile.Pattern, profile.FlagStrings()); err != nil {
				t.logger.Error("failed to publish pattern",
					"user_id", key.UserID.String(),
					"course_id", key.CourseID.String(),
					"error", err,
				)
			}
		}

		if t.eventPublisher != nil {
			_ = t.eventPublisher.Publish(shared.NewLearningPatternChangedEvent(
				key, previous.String(), profile.Pattern.String(), profile.FlagStrings(),
			))
		}
	}

	return nil
}
