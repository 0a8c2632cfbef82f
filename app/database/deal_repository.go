package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ DealRepository = (*DealRepo)(nil)

// DealRepo handles database operations for deals.
type DealRepo struct {
	db *DB
}

func NewDealRepository(db *DB) *DealRepo {
	return &DealRepo{db: db}
}

// Upsert inserts or updates a deal keyed on its slug. The stored status is
// deliberately left out of the conflict update: status transitions are
// admin-controlled and an import run must not resurrect a paused deal.
func (r *DealRepo) Upsert(deal Deal) error {
	if !ValidDealType(deal.DealType) {
		return fmt.Errorf("invalid deal type: %s", deal.DealType)
	}

	_, err := r.db.Exec(`
		INSERT INTO deals (
			slug, title, description, business_name, business_logo_url,
			deal_type, discount_amount, promo_code, category, terms,
			start_date, end_date, url, image_url, status, featured
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			business_name = excluded.business_name,
			business_logo_url = excluded.business_logo_url,
			deal_type = excluded.deal_type,
			discount_amount = excluded.discount_amount,
			promo_code = excluded.promo_code,
			category = excluded.category,
			terms = excluded.terms,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			url = excluded.url,
			image_url = excluded.image_url,
			featured = excluded.featured,
			updated_at = CURRENT_TIMESTAMP
	`, deal.Slug, deal.Title, deal.Description, deal.BusinessName, deal.BusinessLogoURL,
		deal.DealType, deal.DiscountAmount, deal.PromoCode, deal.Category, deal.Terms,
		deal.StartDate, deal.EndDate, deal.URL, deal.ImageURL, deal.Status, deal.Featured)

	if err != nil {
		return fmt.Errorf("failed to upsert deal: %w", err)
	}

	return nil
}

func (r *DealRepo) SlugExists(slug string) (bool, error) {
	var one int
	err := r.db.QueryRow("SELECT 1 FROM deals WHERE slug = ? LIMIT 1", slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check deal slug: %w", err)
	}
	return true, nil
}

func (r *DealRepo) GetBySlug(slug string) (*Deal, error) {
	row := r.db.QueryRow(selectDealColumns+"FROM deals WHERE slug = ?", slug)

	deal, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	return deal, nil
}

// GetByStatus returns deals with the given stored status. No date-window
// filtering happens here: a deal whose end_date has passed still comes back
// as long as its stored status says 'active'.
func (r *DealRepo) GetByStatus(status string, limit int) ([]Deal, error) {
	rows, err := r.db.Query(selectDealColumns+`
		FROM deals
		WHERE status = ?
		ORDER BY featured DESC, end_date ASC
		LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get deals: %w", err)
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal row: %w", err)
		}
		deals = append(deals, *deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deal rows: %w", err)
	}

	return deals, nil
}

func (r *DealRepo) UpdateStatus(slug, status string) error {
	result, err := r.db.Exec(`
		UPDATE deals
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE slug = ?
	`, status, slug)
	if err != nil {
		return fmt.Errorf("failed to update deal status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deal not found: %s", slug)
	}

	return nil
}

// DeleteExpiredByURL removes deals whose end date has passed, limited to one
// source URL. This is the only deletion the pipeline performs.
func (r *DealRepo) DeleteExpiredByURL(sourceURL string, now time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM deals
		WHERE url = ? AND end_date IS NOT NULL AND end_date < ?
	`, sourceURL, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired deals: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}

	return deleted, nil
}

func (r *DealRepo) GetDealCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM deals").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get deal count: %w", err)
	}
	return count, nil
}

// ValidDealType reports whether the given type is in the closed deal_type set.
func ValidDealType(dealType string) bool {
	switch dealType {
	case "discount", "coupon", "promotion", "freebie":
		return true
	}
	return false
}

const selectDealColumns = `
	SELECT id, slug, title, description, business_name, business_logo_url,
	       deal_type, discount_amount, promo_code, category, terms,
	       start_date, end_date, url, image_url, status, featured,
	       created_at, updated_at
`

func scanDeal(row rowScanner) (*Deal, error) {
	var deal Deal
	err := row.Scan(
		&deal.ID, &deal.Slug, &deal.Title, &deal.Description, &deal.BusinessName, &deal.BusinessLogoURL,
		&deal.DealType, &deal.DiscountAmount, &deal.PromoCode, &deal.Category, &deal.Terms,
		&deal.StartDate, &deal.EndDate, &deal.URL, &deal.ImageURL, &deal.Status, &deal.Featured,
		&deal.CreatedAt, &deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &deal, nil
}
