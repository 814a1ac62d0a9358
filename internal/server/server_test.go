package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/riosinforma/apiserver/config"
	"github.com/riosinforma/apiserver/internal/db"
	"github.com/riosinforma/apiserver/internal/logging"
	"github.com/riosinforma/apiserver/internal/storage"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/riosinforma/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t      *testing.T
	srv    *httptest.Server
	users  *store.UserRepository
	client *http.Client
}

func testConfig() config.Config {
	return config.Config{
		PublicBaseURL: "http://api.test",
		CORSOrigins:   []string{"http://localhost:4200"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   24 * time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		Policy: config.PolicyConfig{
			RegisterRole:          types.RoleUser,
			CreateRequiresAdmin:   false,
			UploadRequiresAuth:    false,
			DefaultArticlePerPage: 4,
		},
	}
}

func newTestAPI(t *testing.T, cfg config.Config) *testAPI {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	url := "sqlite://" + filepath.Join(dir, "api.db")
	require.NoError(t, db.MigrateUp(ctx, url))
	conn, _, err := db.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	objects, err := storage.New(ctx, config.StorageConfig{
		Backend:  storage.BackendLocal,
		LocalDir: filepath.Join(dir, "uploads"),
	})
	require.NoError(t, err)

	router, err := NewRouter(cfg, Dependencies{
		DB:      conn,
		Storage: objects,
		Log:     logging.Discard(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testAPI{t: t, srv: srv, users: store.NewUserRepository(conn), client: srv.Client()}
}

func (a *testAPI) do(method, path, token string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.send(req)
}

func (a *testAPI) send(req *http.Request) (*http.Response, []byte) {
	a.t.Helper()
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, data
}

type authPayload struct {
	User        types.User `json:"user"`
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
}

type articlePayload struct {
	ID          int    `json:"id"`
	Title       string `json:"titulo"`
	Summary     string `json:"descripcion"`
	Category    string `json:"categoria"`
	Image       string `json:"imagen"`
	AuthorID    int    `json:"autor_id"`
	AuthorName  string `json:"autor_nombre"`
	PublishedAt string `json:"fecha"`
}

type listPayload struct {
	Items      []articlePayload `json:"items"`
	TotalItems int              `json:"total_items"`
	TotalPages int              `json:"total_paginas"`
	Page       int              `json:"pagina_actual"`
	PageSize   int              `json:"items_por_pagina"`
}

func (a *testAPI) register(name, email, password string) authPayload {
	a.t.Helper()
	resp, body := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, string(body))
	var out authPayload
	require.NoError(a.t, json.Unmarshal(body, &out))
	return out
}

func (a *testAPI) createArticle(token, title, category string) articlePayload {
	a.t.Helper()
	resp, body := a.do(http.MethodPost, "/api/noticias/", token, map[string]string{
		"titulo":      title,
		"descripcion": "Resumen de " + title,
		"contenido":   "Contenido completo de " + title,
		"categoria":   category,
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, string(body))
	var out articlePayload
	require.NoError(a.t, json.Unmarshal(body, &out))
	return out
}

func detail(t *testing.T, body []byte) string {
	t.Helper()
	var out struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out.Detail
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t, testConfig())

	for _, path := range []string{"/healthz", "/api/health", "/readyz"} {
		resp, body := api.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(body), `"status":"healthy"`, path)
	}

	resp, body := api.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Bienvenido a la API de Ríos Informa")

	resp, body = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "noticias_http_requests_total")
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t, testConfig())

	registered := api.register("Ana López", "ana@example.com", "secreto1")
	assert.Equal(t, "bearer", registered.TokenType)
	assert.NotEmpty(t, registered.AccessToken)
	assert.Equal(t, "ana@example.com", registered.User.Email)
	assert.Equal(t, types.RoleUser, registered.User.Role)

	resp, body := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Otra Ana", "email": "ana@example.com", "password": "secreto2",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "El email ya está registrado", detail(t, body))

	resp, body = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "secreto1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var login authPayload
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, registered.User.ID, login.User.ID)

	resp, body = api.do(http.MethodGet, "/api/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var me types.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "Ana López", me.Name)
	assert.NotContains(t, string(body), "password")
}

func TestRegisterMissingFields(t *testing.T) {
	api := newTestAPI(t, testConfig())

	resp, body := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nombre, email y contraseña requeridos", detail(t, body))

	resp, body = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"nombre": "Luis", "email": "luis@example.com", "password": "secreto1",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	api := newTestAPI(t, testConfig())
	api.register("Ana", "ana@example.com", "secreto1")

	wrongPassword, wrongBody := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "incorrecta",
	})
	unknownEmail, unknownBody := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nadie@example.com", "password": "secreto1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)
	assert.Equal(t, wrongBody, unknownBody)
	assert.Equal(t, "Credenciales incorrectas", detail(t, wrongBody))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, testConfig())

	resp, _ := api.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))

	resp, _ = api.do(http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = api.do(http.MethodPost, "/api/noticias/", "", map[string]string{"titulo": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutWithoutRedisStillSucceeds(t *testing.T) {
	api := newTestAPI(t, testConfig())
	user := api.register("Ana", "ana@example.com", "secreto1")

	resp, body := api.do(http.MethodPost, "/api/auth/logout", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Sesión cerrada correctamente")
}

func TestListEmptyHasOnePage(t *testing.T) {
	api := newTestAPI(t, testConfig())

	resp, body := api.do(http.MethodGet, "/api/noticias/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page listPayload
	require.NoError(t, json.Unmarshal(body, &page))
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 4, page.PageSize)
	assert.Contains(t, string(body), `"items":[]`)
}

func TestListPaginationAndFilters(t *testing.T) {
	api := newTestAPI(t, testConfig())
	user := api.register("Ana", "ana@example.com", "secreto1")

	titles := []string{
		"Noticia uno", "Noticia dos", "Noticia tres del parque",
		"Noticia cuatro", "Noticia cinco", "Noticia seis",
	}
	categories := []string{"Comunidad", "Deportes", "Cultura", "Deportes", "Comunidad", "Cultura"}
	for i, title := range titles {
		api.createArticle(user.AccessToken, title, categories[i])
	}

	resp, body := api.do(http.MethodGet, "/api/noticias/?pagina=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page listPayload
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 6, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	cases := []struct {
		name  string
		query string
		total int
	}{
		{"category", "?categoria=Deportes", 2},
		{"all sentinel", "?category=Todos", 6},
		{"search", "?busqueda=PARQUE", 1},
		{"search and category", "?search=parque&category=Deportes", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := api.do(http.MethodGet, "/api/noticias/"+tc.query, "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			var page listPayload
			require.NoError(t, json.Unmarshal(body, &page))
			assert.Equal(t, tc.total, page.TotalItems)
		})
	}

	resp, body = api.do(http.MethodGet, "/api/noticias/?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "página inválida", detail(t, body))
}

func TestCategories(t *testing.T) {
	api := newTestAPI(t, testConfig())

	resp, body := api.do(http.MethodGet, "/api/noticias/categorias", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var categories []string
	require.NoError(t, json.Unmarshal(body, &categories))
	assert.Equal(t, []string{"Todos", "Noticias Locales", "Deportes", "Cultura", "Comunidad"}, categories)
}

func TestArticleLifecycleAndOwnership(t *testing.T) {
	api := newTestAPI(t, testConfig())
	author := api.register("Ana", "ana@example.com", "secreto1")
	other := api.register("Beto", "beto@example.com", "secreto1")

	created := api.createArticle(author.AccessToken, "Feria del libro", "Cultura")
	assert.Equal(t, author.User.ID, created.AuthorID)
	assert.Equal(t, "Ana", created.AuthorName)
	assert.Equal(t, types.DefaultArticleImage, created.Image)
	path := fmt.Sprintf("/api/noticias/%d", created.ID)

	resp, body := api.do(http.MethodPut, path, other.AccessToken, map[string]string{"titulo": "Secuestrado"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))
	resp, body = api.do(http.MethodPut, path, other.AccessToken, map[string]string{"titulo": "Hola"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))
	resp, body = api.do(http.MethodDelete, path, other.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))

	resp, body = api.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched articlePayload
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, "Feria del libro", fetched.Title)

	resp, body = api.do(http.MethodPut, path, author.AccessToken, map[string]any{
		"titulo": "Feria del libro 2025",
		"imagen": "http://api.test/uploads/portada.png",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated articlePayload
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Feria del libro 2025", updated.Title)
	assert.Equal(t, "Resumen de Feria del libro", updated.Summary)
	assert.Equal(t, "http://api.test/uploads/portada.png", updated.Image)

	resp, body = api.do(http.MethodPut, path, author.AccessToken, map[string]any{"imagen": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, types.DefaultArticleImage, updated.Image)
	assert.Equal(t, "Feria del libro 2025", updated.Title)

	resp, body = api.do(http.MethodDelete, path, author.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Noticia eliminada correctamente")

	resp, body = api.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Noticia no encontrada", detail(t, body))
}

func TestAdminMayEditAnyArticle(t *testing.T) {
	api := newTestAPI(t, testConfig())
	author := api.register("Ana", "ana@example.com", "secreto1")
	admin := api.register("Admin", "admin@example.com", "secreto1")

	stored, err := api.users.GetByID(context.Background(), admin.User.ID)
	require.NoError(t, err)
	stored.Role = types.RoleAdmin
	_, err = api.users.Update(context.Background(), stored)
	require.NoError(t, err)

	created := api.createArticle(author.AccessToken, "Limpieza del río", "Comunidad")
	resp, body := api.do(http.MethodPut, fmt.Sprintf("/api/noticias/%d", created.ID), admin.AccessToken,
		map[string]string{"categoria": "Noticias Locales"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"categoria":"Noticias Locales"`)
}

func TestCreateRequiresAdminPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Policy.CreateRequiresAdmin = true
	api := newTestAPI(t, cfg)
	user := api.register("Ana", "ana@example.com", "secreto1")

	resp, _ := api.do(http.MethodPost, "/api/noticias/", user.AccessToken, map[string]string{
		"titulo": "Intento", "descripcion": "d", "contenido": "c", "categoria": "Cultura",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateValidation(t *testing.T) {
	api := newTestAPI(t, testConfig())
	user := api.register("Ana", "ana@example.com", "secreto1")

	resp, body := api.do(http.MethodPost, "/api/noticias/", user.AccessToken, map[string]string{
		"titulo": "   ", "descripcion": "d", "contenido": "c", "categoria": "Cultura",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, detail(t, body))
}

func TestDeletingUserRemovesTheirArticles(t *testing.T) {
	api := newTestAPI(t, testConfig())
	author := api.register("Ana", "ana@example.com", "secreto1")
	created := api.createArticle(author.AccessToken, "Mercado de artesanías", "Comunidad")

	require.NoError(t, api.users.Delete(context.Background(), author.User.ID))

	resp, _ := api.do(http.MethodGet, fmt.Sprintf("/api/noticias/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(http.MethodGet, "/api/auth/me", author.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func (a *testAPI) upload(filename string, content []byte) (*http.Response, []byte) {
	a.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(a.t, err)
	_, err = part.Write(content)
	require.NoError(a.t, err)
	require.NoError(a.t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/upload/", &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return a.send(req)
}

func TestUploadAndServe(t *testing.T) {
	api := newTestAPI(t, testConfig())
	png := []byte("\x89PNG\r\n\x1a\nfake-image-bytes")

	resp, body := api.upload("portada.PNG", png)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var uploaded struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
		Message  string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &uploaded))
	assert.Equal(t, "Imagen subida exitosamente", uploaded.Message)
	assert.Equal(t, "http://api.test/uploads/"+uploaded.Filename, uploaded.URL)
	assert.Regexp(t, `^[0-9a-f]{32}_\d{8}_\d{6}\.png$`, uploaded.Filename)

	resp, body = api.do(http.MethodGet, "/uploads/"+uploaded.Filename, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, png, body)

	resp, _ = api.do(http.MethodGet, "/uploads/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRejectsBadInput(t *testing.T) {
	api := newTestAPI(t, testConfig())

	resp, body := api.upload("script.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/api/upload/", bytes.NewReader(nil))
	require.NoError(t, err)
	resp, body = api.send(req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No se envió ningún archivo", detail(t, body))
}

func TestUploadRequiresAuthPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Policy.UploadRequiresAuth = true
	api := newTestAPI(t, cfg)

	resp, _ := api.upload("portada.png", []byte("img"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
