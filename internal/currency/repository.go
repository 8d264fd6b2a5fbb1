package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrCurrencyNotFound    = errors.New("currency not found")
	ErrDuplicateIdentifier = errors.New("currency identifier already in use")
	ErrPrimaryProtected    = errors.New("primary currency cannot be deleted")
	ErrCurrencyDisabled    = errors.New("currency is disabled")
)

type CurrencyRepository interface {
	FindByID(ctx context.Context, id uint) (*Currency, error)
	// FindByIdentifier is case-insensitive. With includeDeleted it also
	// matches soft-deleted rows, which is how identifier reservation is
	// enforced on create.
	FindByIdentifier(ctx context.Context, identifier string, includeDeleted bool) (*Currency, error)
	ListActive(ctx context.Context) ([]Currency, error)
	ListEnabled(ctx context.Context) ([]Currency, error)
	FindPrimary(ctx context.Context) (*Currency, error)
	Create(ctx context.Context, c *Currency) error
	Update(ctx context.Context, c *Currency) error
	SoftDelete(ctx context.Context, id uint) error
	// ElectPrimary clears the primary flag on every non-deleted row and
	// sets it on the target in one transaction.
	ElectPrimary(ctx context.Context, id uint) error
}

type CurrencyRepositoryImpl struct {
	db *gorm.DB
}

func NewCurrencyRepositoryImpl(db *gorm.DB) CurrencyRepository {
	return &CurrencyRepositoryImpl{db: db}
}

func (r *CurrencyRepositoryImpl) FindByID(ctx context.Context, id uint) (*Currency, error) {
	var c Currency
	err := r.db.WithContext(ctx).Where("id = ? AND deleted = ?", id, false).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCurrencyNotFound
		}
		return nil, fmt.Errorf("failed to find currency by id: %w", err)
	}
	return &c, nil
}

func (r *CurrencyRepositoryImpl) FindByIdentifier(ctx context.Context, identifier string, includeDeleted bool) (*Currency, error) {
	q := r.db.WithContext(ctx).Where("lower(identifier) = ?", strings.ToLower(identifier))
	if !includeDeleted {
		q = q.Where("deleted = ?", false)
	}
	var c Currency
	err := q.First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCurrencyNotFound
		}
		return nil, fmt.Errorf("failed to find currency by identifier: %w", err)
	}
	return &c, nil
}

func (r *CurrencyRepositoryImpl) ListActive(ctx context.Context) ([]Currency, error) {
	var out []Currency
	err := r.db.WithContext(ctx).Where("deleted = ?", false).Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	return out, nil
}

func (r *CurrencyRepositoryImpl) ListEnabled(ctx context.Context) ([]Currency, error) {
	var out []Currency
	err := r.db.WithContext(ctx).Where("deleted = ? AND enabled = ?", false, true).Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled currencies: %w", err)
	}
	return out, nil
}

func (r *CurrencyRepositoryImpl) FindPrimary(ctx context.Context) (*Currency, error) {
	var c Currency
	err := r.db.WithContext(ctx).Where("deleted = ? AND is_primary = ?", false, true).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCurrencyNotFound
		}
		return nil, fmt.Errorf("failed to find primary currency: %w", err)
	}
	return &c, nil
}

func (r *CurrencyRepositoryImpl) Create(ctx context.Context, c *Currency) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create currency: %w", err)
	}
	return nil
}

func (r *CurrencyRepositoryImpl) Update(ctx context.Context, c *Currency) error {
	c.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).Model(&Currency{}).Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"name":                c.Name,
			"symbol":              c.Symbol,
			"default_max_balance": c.DefaultMaxBalance,
			"enabled":             c.Enabled,
			"console_log":         c.ConsoleLog,
			"updated_at":          c.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update currency: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCurrencyNotFound
	}
	return nil
}

func (r *CurrencyRepositoryImpl) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&Currency{}).Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{
			"deleted":    true,
			"enabled":    false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to delete currency: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCurrencyNotFound
	}
	return nil
}

func (r *CurrencyRepositoryImpl) ElectPrimary(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Model(&Currency{}).Where("is_primary = ?", true).
			Updates(map[string]interface{}{
				"is_primary": false,
				"updated_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to clear primary flags: %w", err)
		}

		result := tx.Model(&Currency{}).Where("id = ? AND deleted = ?", id, false).
			Updates(map[string]interface{}{
				"is_primary": true,
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to set primary flag: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrCurrencyNotFound
		}
		return nil
	})
}
