package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

var _ ArticleRepository = (*ArticleRepo)(nil)

// ArticleRepo handles database operations for editorial articles.
type ArticleRepo struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) Create(article Article) error {
	tags, err := json.Marshal(article.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	if article.Status == "" {
		article.Status = "draft"
	}

	_, err = r.db.Exec(`
		INSERT INTO articles (slug, title, content, excerpt, category, tags, image_url, status, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, article.Slug, article.Title, article.Content, article.Excerpt, article.Category,
		string(tags), article.ImageURL, article.Status, article.PublishedAt)

	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

func (r *ArticleRepo) GetBySlug(slug string) (*Article, error) {
	row := r.db.QueryRow(selectArticleColumns+"FROM articles WHERE slug = ?", slug)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

func (r *ArticleRepo) ListPublished(limit int) ([]Article, error) {
	rows, err := r.db.Query(selectArticleColumns+`
		FROM articles
		WHERE status = 'published'
		ORDER BY published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// IncrementViewCount bumps the monotonic view counter by one. There is no
// dedup or anti-abuse: every detail-page view counts.
func (r *ArticleRepo) IncrementViewCount(slug string) error {
	_, err := r.db.Exec("UPDATE articles SET view_count = view_count + 1 WHERE slug = ?", slug)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

func (r *ArticleRepo) Publish(slug string, publishedAt time.Time) error {
	result, err := r.db.Exec(`
		UPDATE articles
		SET status = 'published', published_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE slug = ?
	`, publishedAt, slug)
	if err != nil {
		return fmt.Errorf("failed to publish article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check publish result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article not found: %s", slug)
	}

	return nil
}

func (r *ArticleRepo) GetArticleCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

const selectArticleColumns = `
	SELECT id, slug, title, content, excerpt, category, tags, image_url,
	       status, published_at, view_count, created_at, updated_at
`

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var tags string
	err := row.Scan(
		&article.ID, &article.Slug, &article.Title, &article.Content, &article.Excerpt,
		&article.Category, &tags, &article.ImageURL,
		&article.Status, &article.PublishedAt, &article.ViewCount, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &article.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	return &article, nil
}
