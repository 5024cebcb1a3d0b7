package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortlink/internal/apperr"
	"shortlink/models"
)

// CreateRequest is a validated-at-the-door shorten request.
type CreateRequest struct {
	OriginalURL   string
	ExpiresInDays *int
	CustomCode    string
	// OwnerID is the authenticated caller, empty for anonymous requests.
	OwnerID string
}

// CreateResult is returned for a newly created link.
type CreateResult struct {
	ShortCode   string `json:"shortCode"`
	OriginalURL string `json:"originalUrl"`
	ShortURL    string `json:"shortUrl"`
	QRCode      string `json:"qrCode"`
}

// Analytics is the per-code counter view.
type Analytics struct {
	ShortCode   string     `json:"shortCode"`
	OriginalURL string     `json:"originalUrl"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// Service wires the core components behind the operations the API exposes.
type Service struct {
	store      LinkStore
	cache      Cache
	assigner   *CodeAssigner
	links      *CacheAside
	redirector *Redirector
	baseURL    string
	now        func() time.Time
	logger     *slog.Logger
}

// Options collects Service dependencies.
type Options struct {
	Store     LinkStore
	Cache     Cache
	Clicks    ClickSink
	Generator CodeGenerator
	Assign    AssignConfig
	CacheTTL  CacheConfig
	// BaseURL prefixes short codes in returned URLs, e.g. http://localhost:8080/api.
	BaseURL string
	Logger  *slog.Logger
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	links := NewCacheAside(opts.Cache, opts.Store, opts.Clicks, opts.CacheTTL, logger)
	return &Service{
		store:      opts.Store,
		cache:      opts.Cache,
		assigner:   NewCodeAssigner(opts.Store, opts.Generator, opts.Assign, logger),
		links:      links,
		redirector: NewRedirector(links),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.links.now = now
}

// ShortURL is the public address of code.
func (s *Service) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

// QRURL is the address of code's QR image.
func (s *Service) QRURL(code string) string {
	return s.baseURL + "/qr/" + code
}

// Create validates req, assigns a code and stores the link.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := ValidateURL(req.OriginalURL); err != nil {
		return nil, err
	}
	if req.CustomCode != "" {
		if err := ValidateCustomCode(req.CustomCode); err != nil {
			return nil, err
		}
	}

	now := s.now()
	link := &models.ShortLink{
		OriginalURL: req.OriginalURL,
		CreatedAt:   now,
	}
	if req.ExpiresInDays != nil {
		if *req.ExpiresInDays < 0 {
			return nil, apperr.ErrInvalidExpiry
		}
		expiresAt := now.AddDate(0, 0, *req.ExpiresInDays)
		link.ExpiresAt = &expiresAt
	}
	if req.OwnerID != "" {
		owner := req.OwnerID
		link.OwnerID = &owner
	}

	if err := s.assigner.Claim(ctx, link, req.CustomCode); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "short link created", "code", link.ShortCode, "custom", req.CustomCode != "")

	return &CreateResult{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		ShortURL:    s.ShortURL(link.ShortCode),
		QRCode:      s.QRURL(link.ShortCode),
	}, nil
}

// Redirect returns the redirect target for code and accounts the click.
func (s *Service) Redirect(ctx context.Context, code string) (string, error) {
	return s.redirector.Redirect(ctx, code)
}

// Analytics reads the counter straight from the store.
func (s *Service) Analytics(ctx context.Context, code string) (*Analytics, error) {
	link, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Analytics{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	}, nil
}

// Delete removes code if ownerID created it, then drops it from the cache.
func (s *Service) Delete(ctx context.Context, code, ownerID string) error {
	if ownerID == "" {
		return apperr.ErrUnauthorized
	}
	link, err := s.find(ctx, code)
	if err != nil {
		return err
	}
	if !link.OwnedBy(ownerID) {
		return apperr.ErrForbidden
	}
	if err := s.store.DeleteByCode(ctx, code); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return apperr.ErrLinkNotFound
		}
		return apperr.Upstream(fmt.Errorf("delete %q: %w", code, err))
	}
	if err := s.links.Invalidate(ctx, code); err != nil {
		return apperr.Upstream(fmt.Errorf("invalidate %q: %w", code, err))
	}
	s.logger.InfoContext(ctx, "short link deleted", "code", code)
	return nil
}

// List returns ownerID's links, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.ShortLink, error) {
	if ownerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	links, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Upstream(fmt.Errorf("list links: %w", err))
	}
	if links == nil {
		links = []models.ShortLink{}
	}
	return links, nil
}

// LiveLink returns code's record if it exists and has not expired. It does not count a click.
func (s *Service) LiveLink(ctx context.Context, code string) (*models.ShortLink, error) {
	link, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.IsExpired(s.now()) {
		return nil, apperr.ErrLinkExpired
	}
	return link, nil
}

// CacheStats reports on cached links when the cache supports it.
func (s *Service) CacheStats(ctx context.Context) (CacheStats, error) {
	sc, ok := s.cache.(StatsCache)
	if !ok {
		return CacheStats{}, nil
	}
	stats, err := sc.Stats(ctx, cacheKeyPrefix)
	if err != nil {
		return CacheStats{}, apperr.Upstream(fmt.Errorf("cache stats: %w", err))
	}
	return stats, nil
}

func (s *Service) find(ctx context.Context, code string) (*models.ShortLink, error) {
	if !plausibleCode(code) {
		return nil, apperr.ErrLinkNotFound
	}
	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, apperr.ErrLinkNotFound
		}
		return nil, apperr.Upstream(fmt.Errorf("find %q: %w", code, err))
	}
	return link, nil
}
