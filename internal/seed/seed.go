// Package seed loads the default administrator and the sample news used by
// fresh deployments.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/riosinforma/apiserver/internal/services"
	"github.com/riosinforma/apiserver/types"
	"github.com/sirupsen/logrus"
)

const (
	AdminName     = "Administrador"
	AdminEmail    = "admin@rios.com"
	AdminPassword = "admin123"
)

// ArticleStore is the subset of the article repository seeding needs.
type ArticleStore interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, article types.Article) (types.Article, error)
}

// Seeder writes default data. Every step is idempotent.
type Seeder struct {
	users    *services.UserService
	articles ArticleStore
	log      logrus.FieldLogger
	now      func() time.Time
}

func New(users *services.UserService, articles ArticleStore, log logrus.FieldLogger) *Seeder {
	return &Seeder{users: users, articles: articles, log: log, now: time.Now}
}

// Admin creates the administrator account unless its email is taken.
func (s *Seeder) Admin(ctx context.Context, name, email, password string) (types.User, error) {
	user, created, err := s.users.EnsureUser(ctx, name, email, password, types.RoleAdmin)
	if err != nil {
		return types.User{}, err
	}
	entry := s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email})
	if created {
		entry.Info("admin user created")
	} else {
		entry.Info("admin user already exists")
	}
	return user, nil
}

// News stores the sample articles, authored by the account registered under
// authorEmail, when no article exists yet. It returns how many were created.
func (s *Seeder) News(ctx context.Context, authorEmail string) (int, error) {
	author, err := s.users.GetByEmail(ctx, authorEmail)
	if err != nil {
		return 0, fmt.Errorf("seed author %q: %w", authorEmail, err)
	}

	count, err := s.articles.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	if count > 0 {
		s.log.WithField("articles", count).Info("articles already present, skipping sample news")
		return 0, nil
	}

	now := s.now().UTC()
	for i, sample := range sampleNews {
		image := sample.image
		_, err := s.articles.Create(ctx, types.Article{
			Title:       sample.title,
			Summary:     sample.summary,
			Body:        sample.body,
			Category:    sample.category,
			ImageURL:    &image,
			PublishedAt: now.AddDate(0, 0, -(i + 1)),
			AuthorID:    author.ID,
		})
		if err != nil {
			return i, fmt.Errorf("create sample article %q: %w", sample.title, err)
		}
	}

	s.log.WithField("articles", len(sampleNews)).Info("sample news created")
	return len(sampleNews), nil
}

type sampleArticle struct {
	title    string
	summary  string
	body     string
	category string
	image    string
}

// sampleNews is ordered newest first.
var sampleNews = []sampleArticle{
	{
		title:    "Inauguración del nuevo parque comunitario",
		summary:  "El próximo sábado se inaugurará el parque renovado en el centro de Juan José Ríos",
		body:     "La comunidad de Juan José Ríos se prepara para la inauguración del parque central que ha sido completamente renovado. El evento contará con actividades para toda la familia.",
		category: "Comunidad",
		image:    "https://images.unsplash.com/photo-1559827260-dc66d52bef19?w=400&h=250&fit=crop",
	},
	{
		title:    "Torneo de fútbol local este fin de semana",
		summary:  "Se llevará a cabo el torneo anual de fútbol con la participación de 8 equipos",
		body:     "El torneo contará con equipos de todas las edades y habrá premios para los ganadores. El evento se realizará en la cancha municipal.",
		category: "Deportes",
		image:    "https://images.unsplash.com/photo-1574629810360-7efbbe195018?w=400&h=250&fit=crop",
	},
	{
		title:    "Festival cultural de primavera",
		summary:  "Un evento lleno de música, danza y arte local",
		body:     "El festival celebrará las tradiciones de nuestra comunidad con presentaciones de grupos locales, exposiciones de arte y comida típica.",
		category: "Cultura",
		image:    "https://images.unsplash.com/photo-1533174072545-7a4b6ad7a6c3?w=400&h=250&fit=crop",
	},
	{
		title:    "Nuevo servicio de recolección de basura",
		summary:  "Mejoras en el sistema de limpieza municipal",
		body:     "A partir del próximo mes, habrá nuevos horarios y más frecuencia en la recolección de basura para mantener nuestra comunidad más limpia.",
		category: "Noticias Locales",
		image:    "https://images.unsplash.com/photo-1532996122724-e3c354a0b15b?w=400&h=250&fit=crop",
	},
	{
		title:    "Victorias del equipo juvenil de básquetbol",
		summary:  "Nuestro equipo logra importantes triunfos en el torneo regional",
		body:     "El equipo juvenil de Juan José Ríos ha tenido un desempeño excepcional ganando sus últimos tres partidos.",
		category: "Deportes",
		image:    "https://images.unsplash.com/photo-1546519638-68e109498ffc?w=400&h=250&fit=crop",
	},
	{
		title:    "Taller de arte para niños",
		summary:  "Inscripciones abiertas para el taller de verano",
		body:     "La casa de la cultura abre inscripciones para talleres de pintura, dibujo y escultura dirigidos a niños de 6 a 12 años.",
		category: "Cultura",
		image:    "https://images.unsplash.com/photo-1503454537195-1dcabb73ffb9?w=400&h=250&fit=crop",
	},
}
