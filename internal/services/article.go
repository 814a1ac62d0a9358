package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riosinforma/apiserver/internal/store"
	"github.com/riosinforma/apiserver/types"
)

const (
	DefaultPageSize = 4
	MaxPageSize     = 50
)

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	List(ctx context.Context, filter types.ArticleFilter) ([]types.Article, int, error)
	Get(ctx context.Context, id int) (types.Article, error)
	Create(ctx context.Context, article types.Article) (types.Article, error)
	UpdateWith(ctx context.Context, id int, mutate func(*types.Article) error) (types.Article, error)
	DeleteWith(ctx context.Context, id int, check func(types.Article) error) error
}

// ListQuery selects a page of articles. Zero values fall back to defaults.
type ListQuery struct {
	Page     int
	PageSize int
	Category string
	Search   string
}

// ArticleInput holds the fields of a new article.
type ArticleInput struct {
	Title    string  `json:"titulo" validate:"required,min=5,max=200"`
	Summary  string  `json:"descripcion" validate:"required,min=10"`
	Body     string  `json:"contenido" validate:"required,min=10"`
	Category string  `json:"categoria" validate:"required,min=3,max=50"`
	Image    *string `json:"imagen" validate:"omitnil,max=500"`
}

// ArticlePatch is a partial update. Nil fields are left untouched; ClearImage
// resets the image so the default is shown again.
type ArticlePatch struct {
	Title      *string `json:"titulo" validate:"omitnil,min=5,max=200"`
	Summary    *string `json:"descripcion" validate:"omitnil,min=10"`
	Body       *string `json:"contenido" validate:"omitnil,min=10"`
	Category   *string `json:"categoria" validate:"omitnil,min=3,max=50"`
	Image      *string `json:"imagen" validate:"omitnil,max=500"`
	ClearImage bool    `json:"-"`
}

// ArticleService encapsulates article use-cases.
type ArticleService struct {
	repo                ArticleRepository
	createRequiresAdmin bool
	defaultPageSize     int
}

func NewArticleService(repo ArticleRepository, createRequiresAdmin bool, defaultPageSize int) *ArticleService {
	if defaultPageSize < 1 || defaultPageSize > MaxPageSize {
		defaultPageSize = DefaultPageSize
	}
	return &ArticleService{
		repo:                repo,
		createRequiresAdmin: createRequiresAdmin,
		defaultPageSize:     defaultPageSize,
	}
}

// Categories returns the fixed category list offered to clients.
func (s *ArticleService) Categories() []string {
	return append([]string(nil), types.Categories...)
}

// normalizeCategory maps the "all" sentinels to no filter.
func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, types.AllCategories) || strings.EqualFold(category, "All") {
		return ""
	}
	return category
}

// List returns one page of articles, newest first.
func (s *ArticleService) List(ctx context.Context, q ListQuery) (types.ArticlePage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	items, total, err := s.repo.List(ctx, types.ArticleFilter{
		Category: normalizeCategory(q.Category),
		Search:   strings.TrimSpace(q.Search),
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	})
	if err != nil {
		return types.ArticlePage{}, fmt.Errorf("list articles: %w", err)
	}
	if items == nil {
		items = []types.Article{}
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return types.ArticlePage{
		Items:      items,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (s *ArticleService) Get(ctx context.Context, id int) (types.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Article{}, mapStoreError(err)
	}
	return article, nil
}

// Create stores a new article authored by actor.
func (s *ArticleService) Create(ctx context.Context, in ArticleInput, actor types.User) (types.Article, error) {
	if s.createRequiresAdmin && !actor.IsAdmin() {
		return types.Article{}, ErrForbidden
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Summary = strings.TrimSpace(in.Summary)
	in.Body = strings.TrimSpace(in.Body)
	in.Category = strings.TrimSpace(in.Category)
	in.Image = trimOptional(in.Image)
	if err := validateStruct(in); err != nil {
		return types.Article{}, err
	}

	article, err := s.repo.Create(ctx, types.Article{
		Title:      in.Title,
		Summary:    in.Summary,
		Body:       in.Body,
		Category:   in.Category,
		ImageURL:   in.Image,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
	})
	if err != nil {
		return types.Article{}, fmt.Errorf("create article: %w", err)
	}
	return article, nil
}

// Update applies patch when actor is the author or an admin. Otherwise the
// article is left unchanged and ErrForbidden is returned, whatever the patch
// contains.
func (s *ArticleService) Update(ctx context.Context, id int, patch ArticlePatch, actor types.User) (types.Article, error) {
	patch.Title = trimPresent(patch.Title)
	patch.Summary = trimPresent(patch.Summary)
	patch.Body = trimPresent(patch.Body)
	patch.Category = trimPresent(patch.Category)

	updated, err := s.repo.UpdateWith(ctx, id, func(article *types.Article) error {
		if !canModify(actor, *article) {
			return ErrForbidden
		}
		if err := validateStruct(patch); err != nil {
			return err
		}
		if patch.Title != nil {
			article.Title = *patch.Title
		}
		if patch.Summary != nil {
			article.Summary = *patch.Summary
		}
		if patch.Body != nil {
			article.Body = *patch.Body
		}
		if patch.Category != nil {
			article.Category = *patch.Category
		}
		if patch.ClearImage {
			article.ImageURL = nil
		} else if image := trimOptional(patch.Image); image != nil {
			article.ImageURL = image
		}
		return nil
	})
	if err != nil {
		return types.Article{}, mapStoreError(err)
	}
	return updated, nil
}

// Delete removes the article when actor is the author or an admin.
func (s *ArticleService) Delete(ctx context.Context, id int, actor types.User) error {
	err := s.repo.DeleteWith(ctx, id, func(article types.Article) error {
		if !canModify(actor, article) {
			return ErrForbidden
		}
		return nil
	})
	if err != nil {
		return mapStoreError(err)
	}
	return nil
}

func canModify(actor types.User, article types.Article) bool {
	return actor.IsAdmin() || article.AuthorID == actor.ID
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func trimPresent(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// trimOptional trims s and treats blank values as absent.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
