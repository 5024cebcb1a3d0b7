package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shortlink/internal/shortener"
	"shortlink/models"
)

// DefaultQueryTimeout bounds every store call that arrives without a deadline.
const DefaultQueryTimeout = 3 * time.Second

// GormStore is the record store on gorm. The unique index on short_code is what
// makes CreateUnique a conditional insert.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	if db == nil {
		panic("nil *gorm.DB passed to NewGormStore")
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &GormStore{db: db, timeout: timeout}
}

func (s *GormStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GormStore) FindByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var link models.ShortLink
	if err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shortener.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find short link: %w", err)
	}
	return &link, nil
}

func (s *GormStore) CreateUnique(ctx context.Context, link *models.ShortLink) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "short_code"}}, DoNothing: true}).
		Create(link)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return shortener.ErrCodeConflict
		}
		return fmt.Errorf("create short link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return shortener.ErrCodeConflict
	}
	return nil
}

// IncrementClicks adds by in a single UPDATE so concurrent increments never overwrite each other.
func (s *GormStore) IncrementClicks(ctx context.Context, code string, by int64) (*models.ShortLink, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&models.ShortLink{}).
		Where("short_code = ?", code).
		Update("clicks", gorm.Expr("clicks + ?", by))
	if res.Error != nil {
		return nil, fmt.Errorf("increment clicks: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, shortener.ErrRecordNotFound
	}
	return s.FindByCode(ctx, code)
}

func (s *GormStore) DeleteByCode(ctx context.Context, code string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Where("short_code = ?", code).Delete(&models.ShortLink{})
	if res.Error != nil {
		return fmt.Errorf("delete short link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return shortener.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) ListByOwner(ctx context.Context, ownerID string) ([]models.ShortLink, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var links []models.ShortLink
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list short links: %w", err)
	}
	return links, nil
}

// isUniqueViolation covers drivers that report the conflict as an error
// instead of honouring ON CONFLICT DO NOTHING.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
