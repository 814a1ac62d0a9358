package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/riosinforma/apiserver/internal/services"
	"github.com/riosinforma/apiserver/types"
	"github.com/sirupsen/logrus"
)

const msgArticleNotFound = "Noticia no encontrada"

// ArticleHandler provides HTTP handlers for news articles.
type ArticleHandler struct {
	articleService *services.ArticleService
	log            logrus.FieldLogger
}

func NewArticleHandler(articleService *services.ArticleService, log logrus.FieldLogger) *ArticleHandler {
	return &ArticleHandler{articleService: articleService, log: log}
}

// ArticleRouter registers article routes on the given router. createRole is
// the role required to publish, empty for any authenticated user.
func ArticleRouter(r chi.Router, handler *ArticleHandler, authn *Authenticator, createRole string) {
	r.Get("/", handler.ListArticles)
	r.Get("/categorias", handler.Categories)
	r.With(authn.Require(createRole)).Post("/", handler.CreateArticle)
	r.Route("/{articleID}", func(r chi.Router) {
		r.Get("/", handler.GetArticle)
		r.With(authn.Require("")).Put("/", handler.UpdateArticle)
		r.With(authn.Require("")).Delete("/", handler.DeleteArticle)
	})
}

// ArticleResponse is an article with its display image resolved.
type ArticleResponse struct {
	types.Article
	Image string `json:"imagen"`
}

func newArticleResponse(article types.Article) ArticleResponse {
	return ArticleResponse{Article: article, Image: article.Image()}
}

// ArticleListResponse is the paginated list response payload.
type ArticleListResponse struct {
	Items      []ArticleResponse `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPages int               `json:"total_paginas"`
	Page       int               `json:"pagina_actual"`
	PageSize   int               `json:"items_por_pagina"`
}

func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.articleService.List(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, h.log, err, msgArticleNotFound)
		return
	}

	items := make([]ArticleResponse, 0, len(page.Items))
	for _, article := range page.Items {
		items = append(items, newArticleResponse(article))
	}
	writeJSON(w, http.StatusOK, ArticleListResponse{
		Items:      items,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		Page:       page.Page,
		PageSize:   page.PageSize,
	})
}

func (h *ArticleHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.articleService.Categories())
}

func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "articleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	article, err := h.articleService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err, msgArticleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newArticleResponse(article))
}

func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var in services.ArticleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.articleService.Create(r.Context(), in, actor)
	if err != nil {
		writeServiceError(w, r, h.log, err, msgArticleNotFound)
		return
	}

	requestLogger(h.log, r).WithFields(logrus.Fields{"article_id": created.ID, "user_id": actor.ID}).Info("article created")
	writeJSON(w, http.StatusCreated, newArticleResponse(created))
}

func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	id, err := parseIDParam(r, "articleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch, err := parseArticlePatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.articleService.Update(r.Context(), id, patch, actor)
	if err != nil {
		writeServiceError(w, r, h.log, err, msgArticleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newArticleResponse(updated))
}

func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	id, err := parseIDParam(r, "articleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.articleService.Delete(r.Context(), id, actor); err != nil {
		writeServiceError(w, r, h.log, err, msgArticleNotFound)
		return
	}

	requestLogger(h.log, r).WithFields(logrus.Fields{"article_id": id, "user_id": actor.ID}).Info("article deleted")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Noticia eliminada correctamente", Success: true})
}

// parseListQuery reads page/pagina, pageSize/items_por_pagina,
// category/categoria and search/busqueda.
func parseListQuery(r *http.Request) (services.ListQuery, error) {
	query := services.ListQuery{
		Category: firstQuery(r, "category", "categoria"),
		Search:   firstQuery(r, "search", "busqueda"),
	}

	if raw := firstQuery(r, "page", "pagina"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return services.ListQuery{}, errors.New("página inválida")
		}
		query.Page = page
	}

	if raw := firstQuery(r, "pageSize", "page_size", "items_por_pagina"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return services.ListQuery{}, errors.New("tamaño de página inválido")
		}
		query.PageSize = size
	}

	return query, nil
}

// parseArticlePatch decodes a partial update. Only keys present in the body
// are applied; "imagen": null (or "") clears the image.
func parseArticlePatch(r *http.Request) (services.ArticlePatch, error) {
	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		return services.ArticlePatch{}, err
	}

	var patch services.ArticlePatch
	fields := map[string]**string{
		"titulo":      &patch.Title,
		"descripcion": &patch.Summary,
		"contenido":   &patch.Body,
		"categoria":   &patch.Category,
	}
	for key, dst := range fields {
		value, ok := raw[key]
		if !ok || isJSONNull(value) {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return services.ArticlePatch{}, errors.New(key + ": debe ser texto")
		}
		*dst = &s
	}

	if value, ok := raw["imagen"]; ok {
		if isJSONNull(value) {
			patch.ClearImage = true
		} else {
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return services.ArticlePatch{}, errors.New("imagen: debe ser texto")
			}
			if s == "" {
				patch.ClearImage = true
			} else {
				patch.Image = &s
			}
		}
	}

	return patch, nil
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
