package types

import "time"

// DefaultArticleImage is shown for articles stored without an image.
const DefaultArticleImage = "https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=400&h=250&fit=crop"

// AllCategories is the sentinel category meaning "no category filter".
const AllCategories = "Todos"

// Categories is the fixed list offered to clients for filtering. It is not
// derived from the categories actually stored.
var Categories = []string{AllCategories, "Noticias Locales", "Deportes", "Cultura", "Comunidad"}

// Article represents a news item published on the portal.
type Article struct {
	// ID is the unique identifier of the article.
	ID int `json:"id" db:"id"`

	// Title is the headline of the article.
	Title string `json:"titulo" db:"title"`

	// Summary is a short description shown in listings.
	Summary string `json:"descripcion" db:"summary"`

	// Body is the full text content.
	Body string `json:"contenido" db:"body"`

	// Category is a free-text label. Listing filters match it exactly.
	Category string `json:"categoria" db:"category"`

	// ImageURL is the optional cover image. Nil means the default image
	// is substituted when the article is presented.
	ImageURL *string `json:"-" db:"image_url"`

	// PublishedAt orders the article in listings, newest first.
	PublishedAt time.Time `json:"fecha" db:"published_at"`

	// AuthorID references the user that created the article. Deleting the
	// user deletes their articles.
	AuthorID int `json:"autor_id" db:"author_id"`

	// AuthorName is the author's display name, joined on read.
	AuthorName string `json:"autor_nombre" db:"-"`

	// CreatedAt is the timestamp at which the article was stored.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent modification.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Image returns the cover image URL, falling back to DefaultArticleImage.
func (a Article) Image() string {
	if a.ImageURL == nil || *a.ImageURL == "" {
		return DefaultArticleImage
	}
	return *a.ImageURL
}

// ArticleFilter narrows a listing query. Zero values mean "no filter".
type ArticleFilter struct {
	Category string
	Search   string
	Offset   int
	Limit    int
}

// ArticlePage is one page of a filtered listing.
type ArticlePage struct {
	Items      []Article
	TotalItems int
	TotalPages int
	Page       int
	PageSize   int
}
