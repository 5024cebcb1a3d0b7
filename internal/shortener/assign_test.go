package shortener

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink/internal/apperr"
	"shortlink/models"
)

func TestAssign_RandomCode(t *testing.T) {
	store := newFakeStore()
	a := NewCodeAssigner(store, nil, AssignConfig{}, nil)

	first, err := a.Assign(context.Background(), "")
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Za-z0-9]{6}$`, first)

	second, err := a.Assign(context.Background(), "")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestAssign_CustomCodeReserved(t *testing.T) {
	store := newFakeStore()
	a := NewCodeAssigner(store, nil, AssignConfig{}, nil)

	code, err := a.Assign(context.Background(), "MyLink2024")
	require.NoError(t, err)
	assert.Equal(t, "MyLink2024", code)
	assert.EqualValues(t, 1, store.findCalls.Load(), "one existence check per branch")
}

func TestAssign_InvalidCustomCodeSkipsStore(t *testing.T) {
	for _, code := range []string{"ab", strings.Repeat("x", 21), "has-dash", "spa ce", "ünï"} {
		store := newFakeStore()
		a := NewCodeAssigner(store, nil, AssignConfig{}, nil)

		_, err := a.Assign(context.Background(), code)
		require.ErrorIs(t, err, apperr.ErrInvalidCode, code)
		assert.EqualValues(t, 0, store.findCalls.Load(), code)
	}
}

func TestAssign_CustomCodeTaken(t *testing.T) {
	store := newFakeStore()
	store.put(models.ShortLink{ShortCode: "taken", OriginalURL: "https://other.com"})
	a := NewCodeAssigner(store, nil, AssignConfig{}, nil)

	_, err := a.Assign(context.Background(), "taken")
	require.ErrorIs(t, err, apperr.ErrCodeTaken)
}

func TestAssign_SkipsExistingCodes(t *testing.T) {
	store := newFakeStore()
	store.put(models.ShortLink{ShortCode: "aaaaaa"})
	store.put(models.ShortLink{ShortCode: "bbbbbb"})
	a := NewCodeAssigner(store, sequenceGenerator("aaaaaa", "bbbbbb", "cccccc"), AssignConfig{}, nil)

	code, err := a.Assign(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "cccccc", code)
}

func TestAssign_SpaceExhaustedAfterFallbackLengths(t *testing.T) {
	store := newFakeStore()
	store.put(models.ShortLink{ShortCode: "dup"})
	var lengths []int
	gen := func(length int) (string, error) {
		lengths = append(lengths, length)
		return "dup", nil
	}
	a := NewCodeAssigner(store, gen, AssignConfig{Length: 6, MaxAttempts: 3, MaxLength: 7}, nil)

	_, err := a.Assign(context.Background(), "")
	require.ErrorIs(t, err, apperr.ErrSpaceExhausted)
	assert.Equal(t, []int{6, 6, 6, 7, 7, 7}, lengths)
}

func TestAssign_StoreFailureIsUpstream(t *testing.T) {
	store := newFakeStore()
	store.findErr = errBoom
	a := NewCodeAssigner(store, nil, AssignConfig{}, nil)

	_, err := a.Assign(context.Background(), "")
	assert.Equal(t, apperr.CodeUpstreamUnavailable, apperr.CodeOf(err))

	_, err = a.Assign(context.Background(), "custom1")
	assert.Equal(t, apperr.CodeUpstreamUnavailable, apperr.CodeOf(err))
}

func TestClaim_RetriesOnInsertConflict(t *testing.T) {
	store := newFakeStore()
	// Another writer takes "racer1" after our existence check but before our insert.
	store.beforeCreate = func(code string) {
		if code == "racer1" {
			store.mu.Lock()
			store.links[code] = &models.ShortLink{ShortCode: code, OriginalURL: "https://winner.example"}
			store.mu.Unlock()
		}
	}
	a := NewCodeAssigner(store, sequenceGenerator("racer1", "calm22"), AssignConfig{}, nil)

	link := &models.ShortLink{OriginalURL: "https://example.com", CreatedAt: time.Now()}
	require.NoError(t, a.Claim(context.Background(), link, ""))
	assert.Equal(t, "calm22", link.ShortCode)
	assert.EqualValues(t, 2, store.createCalls.Load())

	got, err := store.FindByCode(context.Background(), "racer1")
	require.NoError(t, err)
	assert.Equal(t, "https://winner.example", got.OriginalURL)
}

func TestClaim_CustomCodeConflictIsTaken(t *testing.T) {
	store := newFakeStore()
	store.beforeCreate = func(code string) {
		store.mu.Lock()
		store.links[code] = &models.ShortLink{ShortCode: code}
		store.mu.Unlock()
	}
	a := NewCodeAssigner(store, nil, AssignConfig{}, nil)

	link := &models.ShortLink{OriginalURL: "https://example.com"}
	err := a.Claim(context.Background(), link, "promo")
	require.ErrorIs(t, err, apperr.ErrCodeTaken)
}

func TestClaim_CustomCodeGoesThroughAssign(t *testing.T) {
	store := newFakeStore()
	store.links["promo"] = &models.ShortLink{ShortCode: "promo", OriginalURL: "https://first.example"}
	a := NewCodeAssigner(store, nil, AssignConfig{}, nil)

	_, assignErr := a.Assign(context.Background(), "promo")
	claimErr := a.Claim(context.Background(), &models.ShortLink{OriginalURL: "https://example.com"}, "promo")
	require.ErrorIs(t, assignErr, apperr.ErrCodeTaken)
	require.ErrorIs(t, claimErr, apperr.ErrCodeTaken)
	assert.Zero(t, store.createCalls.Load(), "a taken custom code never reaches the insert")

	err := a.Claim(context.Background(), &models.ShortLink{OriginalURL: "https://example.com"}, "no!")
	require.ErrorIs(t, err, apperr.ErrInvalidCode)
	assert.Zero(t, store.createCalls.Load())

	link := &models.ShortLink{OriginalURL: "https://example.com"}
	require.NoError(t, a.Claim(context.Background(), link, "fresh1"))
	assert.Equal(t, "fresh1", link.ShortCode)
	assert.EqualValues(t, 1, store.createCalls.Load())
}

func TestClaim_ConcurrentRandomClaimsAreUnique(t *testing.T) {
	store := newFakeStore()
	// A tiny code space forces collisions between concurrent claims.
	gen := sequenceGenerator("a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8")
	a := NewCodeAssigner(store, gen, AssignConfig{Length: 2, MaxAttempts: 20, MaxLength: 2}, nil)

	const workers = 8
	codes := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			link := &models.ShortLink{OriginalURL: "https://example.com"}
			if err := a.Claim(context.Background(), link, ""); err != nil {
				errs <- err
				return
			}
			codes <- link.ShortCode
		}()
	}

	seen := map[string]bool{}
	for i := 0; i < workers; i++ {
		select {
		case code := <-codes:
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true
		case err := <-errs:
			assert.ErrorIs(t, err, apperr.ErrSpaceExhausted)
		}
	}
}
