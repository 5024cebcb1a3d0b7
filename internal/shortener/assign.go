package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shortlink/internal/apperr"
	"shortlink/models"
	"shortlink/utils"
)

// CodeGenerator produces a random token of the requested length.
type CodeGenerator func(length int) (string, error)

// AssignConfig bounds random code allocation.
type AssignConfig struct {
	// Length is the default generated code length.
	Length int
	// MaxAttempts is the number of candidates tried per length.
	MaxAttempts int
	// MaxLength is the longest length tried before giving up with SPACE_EXHAUSTED.
	MaxLength int
}

func (c AssignConfig) withDefaults() AssignConfig {
	if c.Length <= 0 {
		c.Length = utils.DefaultCodeLength
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.MaxLength < c.Length {
		c.MaxLength = c.Length
	}
	return c
}

// CodeAssigner hands out never-before-issued codes. The existence check is only
// a fast path; the store's conditional insert is what guarantees uniqueness.
type CodeAssigner struct {
	store    LinkStore
	generate CodeGenerator
	cfg      AssignConfig
	logger   *slog.Logger
}

func NewCodeAssigner(store LinkStore, generate CodeGenerator, cfg AssignConfig, logger *slog.Logger) *CodeAssigner {
	if generate == nil {
		generate = utils.GenerateCode
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeAssigner{
		store:    store,
		generate: generate,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Assign returns a code that is currently unused. A custom code is validated and
// checked once; otherwise random candidates are drawn until an unused one appears.
func (a *CodeAssigner) Assign(ctx context.Context, customCode string) (string, error) {
	if customCode != "" {
		return a.checkCustom(ctx, customCode)
	}
	return a.nextRandom(ctx, func(string) bool { return true })
}

// Claim assigns a code to link through Assign and persists it. A conflicting
// insert of a random code is retried with a fresh candidate; for a custom code
// it means CODE_TAKEN.
func (a *CodeAssigner) Claim(ctx context.Context, link *models.ShortLink, customCode string) error {
	if customCode != "" {
		code, err := a.Assign(ctx, customCode)
		if err != nil {
			return err
		}
		link.ShortCode = code
		if err := a.store.CreateUnique(ctx, link); err != nil {
			if errors.Is(err, ErrCodeConflict) {
				return apperr.ErrCodeTaken
			}
			return apperr.Upstream(fmt.Errorf("create %q: %w", code, err))
		}
		return nil
	}

	var createErr error
	_, err := a.nextRandom(ctx, func(code string) bool {
		link.ShortCode = code
		createErr = a.store.CreateUnique(ctx, link)
		if errors.Is(createErr, ErrCodeConflict) {
			a.logger.DebugContext(ctx, "short code taken between check and insert", "code", code)
			return false
		}
		return true
	})
	if err != nil {
		link.ShortCode = ""
		return err
	}
	if createErr != nil {
		link.ShortCode = ""
		return apperr.Upstream(fmt.Errorf("create link: %w", createErr))
	}
	return nil
}

func (a *CodeAssigner) checkCustom(ctx context.Context, code string) (string, error) {
	if err := ValidateCustomCode(code); err != nil {
		return "", err
	}
	_, err := a.store.FindByCode(ctx, code)
	switch {
	case err == nil:
		return "", apperr.ErrCodeTaken
	case errors.Is(err, ErrRecordNotFound):
		return code, nil
	default:
		return "", apperr.Upstream(fmt.Errorf("check custom code: %w", err))
	}
}

// nextRandom draws candidates, MaxAttempts per length starting at Length and
// growing by one up to MaxLength. accept is called with each unused candidate
// and returns false when the code turned out to be taken after all.
func (a *CodeAssigner) nextRandom(ctx context.Context, accept func(code string) bool) (string, error) {
	for length := a.cfg.Length; length <= a.cfg.MaxLength; length++ {
		for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", apperr.Upstream(err)
			}
			code, err := a.generate(length)
			if err != nil {
				return "", apperr.Wrap(err, apperr.CodeInternal, "generate short code")
			}
			_, err = a.store.FindByCode(ctx, code)
			if err == nil {
				a.logger.DebugContext(ctx, "short code collision", "code", code, "attempt", attempt, "length", length)
				continue
			}
			if !errors.Is(err, ErrRecordNotFound) {
				return "", apperr.Upstream(fmt.Errorf("check short code: %w", err))
			}
			if accept(code) {
				return code, nil
			}
		}
		if length < a.cfg.MaxLength {
			a.logger.WarnContext(ctx, "short code space crowded, growing length", "length", length+1)
		}
	}
	return "", apperr.ErrSpaceExhausted
}
