package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("assign: %w", ErrInvalidCode)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrCodeTaken))
}

func TestUpstream_Unwraps(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Upstream(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUpstreamUnavailable, CodeOf(err))
}

func TestPublic_HidesInternalDetail(t *testing.T) {
	pub := Public(errors.New("pq: relation \"short_links\" does not exist"))
	assert.Equal(t, ErrInternal, pub)

	pub = Public(Upstream(errors.New("secret host 10.0.0.3")))
	assert.Nil(t, pub.Err)
	assert.Equal(t, CodeUpstreamUnavailable, pub.Code)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrInvalidURL:           http.StatusBadRequest,
		ErrCodeTaken:            http.StatusConflict,
		ErrSpaceExhausted:       http.StatusServiceUnavailable,
		ErrLinkNotFound:         http.StatusNotFound,
		ErrLinkExpired:          http.StatusGone,
		ErrForbidden:            http.StatusForbidden,
		ErrUnauthorized:         http.StatusUnauthorized,
		ErrRateLimited:          http.StatusTooManyRequests,
		ErrUpstream:             http.StatusServiceUnavailable,
		errors.New("unexpected"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}
