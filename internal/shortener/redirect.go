package shortener

import (
	"context"
	"errors"

	"shortlink/internal/apperr"
)

// Redirector turns a short code into a redirect destination.
type Redirector struct {
	links *CacheAside
}

func NewRedirector(links *CacheAside) *Redirector {
	return &Redirector{links: links}
}

// Redirect returns the target URL for code, LINK_NOT_FOUND or LINK_EXPIRED.
func (r *Redirector) Redirect(ctx context.Context, code string) (string, error) {
	if !plausibleCode(code) {
		return "", apperr.ErrLinkNotFound
	}
	link, err := r.links.Resolve(ctx, code)
	switch {
	case err == nil:
		return link.OriginalURL, nil
	case errors.Is(err, ErrRecordNotFound):
		return "", apperr.ErrLinkNotFound
	case errors.Is(err, ErrExpired):
		return "", apperr.ErrLinkExpired
	default:
		return "", err
	}
}

// plausibleCode rejects codes no assignment could have produced, without a lookup.
func plausibleCode(code string) bool {
	if code == "" || len(code) > 32 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
