package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riosinforma/apiserver/types"
)

// ArticleRepository handles persistence for news articles.
type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

const articleSelect = `
		SELECT a.id, a.title, a.summary, a.body, a.category, a.image_url, a.published_at,
			a.author_id, COALESCE(u.name, ''), a.created_at, a.updated_at
		FROM articles a
		LEFT JOIN users u ON u.id = a.author_id`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanArticle(row rowScanner) (types.Article, error) {
	var article types.Article
	var image sql.NullString
	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Summary,
		&article.Body,
		&article.Category,
		&image,
		&article.PublishedAt,
		&article.AuthorID,
		&article.AuthorName,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return types.Article{}, err
	}
	if image.Valid {
		article.ImageURL = &image.String
	}
	return article, nil
}

// escapeLike escapes LIKE wildcards so term matches literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func articleWhere(filter types.ArticleFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(a.title) LIKE $%d ESCAPE '\' OR LOWER(a.summary) LIKE $%d ESCAPE '\')`, n, n))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns the page of articles matching filter, newest first, along with
// the total number of matches.
func (r *ArticleRepository) List(ctx context.Context, filter types.ArticleFilter) ([]types.Article, int, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit < 1 {
		filter.Limit = 4
	}

	where, args := articleWhere(filter)

	var total int
	countQuery := `SELECT COUNT(1) FROM articles a` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(args, filter.Limit, filter.Offset)
	listQuery := articleSelect + where + fmt.Sprintf(
		` ORDER BY a.published_at DESC, a.id DESC LIMIT $%d OFFSET $%d`, len(listArgs)-1, len(listArgs))
	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	articles := make([]types.Article, 0, filter.Limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

func (r *ArticleRepository) Get(ctx context.Context, id int) (types.Article, error) {
	return getArticle(ctx, r.db, id)
}

func getArticle(ctx context.Context, q queryRower, id int) (types.Article, error) {
	article, err := scanArticle(q.QueryRowContext(ctx, articleSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Article{}, ErrNotFound
		}
		return types.Article{}, err
	}
	return article, nil
}

// Create inserts article. PublishedAt defaults to the creation time.
func (r *ArticleRepository) Create(ctx context.Context, article types.Article) (types.Article, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	article.CreatedAt = now
	article.UpdatedAt = now
	if article.PublishedAt.IsZero() {
		article.PublishedAt = now
	} else {
		article.PublishedAt = article.PublishedAt.UTC().Truncate(time.Microsecond)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Article{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if article.AuthorName == "" {
		err := tx.QueryRowContext(ctx, `SELECT name FROM users WHERE id = $1`, article.AuthorID).Scan(&article.AuthorName)
		if errors.Is(err, sql.ErrNoRows) {
			return types.Article{}, fmt.Errorf("author %d: %w", article.AuthorID, ErrNotFound)
		}
		if err != nil {
			return types.Article{}, err
		}
	}

	const query = `
		INSERT INTO articles (title, summary, body, category, image_url, published_at, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		query,
		article.Title,
		article.Summary,
		article.Body,
		article.Category,
		nullableString(article.ImageURL),
		article.PublishedAt,
		article.AuthorID,
		article.CreatedAt,
		article.UpdatedAt,
	).Scan(&article.ID); err != nil {
		return types.Article{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Article{}, err
	}
	return article, nil
}

// UpdateWith loads the article, lets mutate change it and persists the result
// in one transaction. If mutate returns an error nothing is written and that
// error is returned unchanged.
func (r *ArticleRepository) UpdateWith(ctx context.Context, id int, mutate func(*types.Article) error) (types.Article, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Article{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	article, err := getArticle(ctx, tx, id)
	if err != nil {
		return types.Article{}, err
	}

	if err := mutate(&article); err != nil {
		return types.Article{}, err
	}
	article.ID = id
	article.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	const query = `
		UPDATE articles
		SET title = $1,
			summary = $2,
			body = $3,
			category = $4,
			image_url = $5,
			published_at = $6,
			updated_at = $7
		WHERE id = $8`
	if _, err := tx.ExecContext(
		ctx,
		query,
		article.Title,
		article.Summary,
		article.Body,
		article.Category,
		nullableString(article.ImageURL),
		article.PublishedAt.UTC(),
		article.UpdatedAt,
		id,
	); err != nil {
		return types.Article{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Article{}, err
	}
	return article, nil
}

// DeleteWith loads the article, runs check against it and deletes it in one
// transaction. If check returns an error the row is kept.
func (r *ArticleRepository) DeleteWith(ctx context.Context, id int, check func(types.Article) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	article, err := getArticle(ctx, tx, id)
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(article); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the number of stored articles.
func (r *ArticleRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
