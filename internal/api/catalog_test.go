package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipebox/internal/api/middleware"
	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type mockCatalogStore struct {
	listTagsFunc         func(ctx context.Context, userID uint, assignedOnly bool) ([]model.Tag, error)
	createTagFunc        func(ctx context.Context, tag *model.Tag) error
	tagsByIDsFunc        func(ctx context.Context, userID uint, ids []uint) ([]model.Tag, error)
	listIngredientsFunc  func(ctx context.Context, userID uint, assignedOnly bool) ([]model.Ingredient, error)
	createIngredientFunc func(ctx context.Context, ingredient *model.Ingredient) error
	ingredientsByIDsFunc func(ctx context.Context, userID uint, ids []uint) ([]model.Ingredient, error)
	listRecipesFunc      func(ctx context.Context, userID uint, filter RecipeFilter) ([]model.Recipe, error)
	getRecipeFunc        func(ctx context.Context, userID, id uint) (*model.Recipe, error)
	createRecipeFunc     func(ctx context.Context, recipe *model.Recipe) error
	updateRecipeFunc     func(ctx context.Context, userID, id uint, fields map[string]interface{}, tags *[]model.Tag, ingredients *[]model.Ingredient) (*model.Recipe, error)
	deleteRecipeFunc     func(ctx context.Context, userID, id uint) (*model.Recipe, error)
	setRecipeImageFunc   func(ctx context.Context, userID, id uint, image string) (string, error)
}

func (m *mockCatalogStore) ListTags(ctx context.Context, userID uint, assignedOnly bool) ([]model.Tag, error) {
	return m.listTagsFunc(ctx, userID, assignedOnly)
}

func (m *mockCatalogStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	return m.createTagFunc(ctx, tag)
}

func (m *mockCatalogStore) TagsByIDs(ctx context.Context, userID uint, ids []uint) ([]model.Tag, error) {
	return m.tagsByIDsFunc(ctx, userID, ids)
}

func (m *mockCatalogStore) ListIngredients(ctx context.Context, userID uint, assignedOnly bool) ([]model.Ingredient, error) {
	return m.listIngredientsFunc(ctx, userID, assignedOnly)
}

func (m *mockCatalogStore) CreateIngredient(ctx context.Context, ingredient *model.Ingredient) error {
	return m.createIngredientFunc(ctx, ingredient)
}

func (m *mockCatalogStore) IngredientsByIDs(ctx context.Context, userID uint, ids []uint) ([]model.Ingredient, error) {
	return m.ingredientsByIDsFunc(ctx, userID, ids)
}

func (m *mockCatalogStore) ListRecipes(ctx context.Context, userID uint, filter RecipeFilter) ([]model.Recipe, error) {
	return m.listRecipesFunc(ctx, userID, filter)
}

func (m *mockCatalogStore) GetRecipe(ctx context.Context, userID, id uint) (*model.Recipe, error) {
	return m.getRecipeFunc(ctx, userID, id)
}

func (m *mockCatalogStore) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	return m.createRecipeFunc(ctx, recipe)
}

func (m *mockCatalogStore) UpdateRecipe(ctx context.Context, userID, id uint, fields map[string]interface{}, tags *[]model.Tag, ingredients *[]model.Ingredient) (*model.Recipe, error) {
	return m.updateRecipeFunc(ctx, userID, id, fields, tags, ingredients)
}

func (m *mockCatalogStore) DeleteRecipe(ctx context.Context, userID, id uint) (*model.Recipe, error) {
	return m.deleteRecipeFunc(ctx, userID, id)
}

func (m *mockCatalogStore) SetRecipeImage(ctx context.Context, userID, id uint, image string) (string, error) {
	return m.setRecipeImageFunc(ctx, userID, id, image)
}

type mockImageStore struct {
	saveFunc  func(r io.Reader) (string, error)
	removed   []string
	removeErr error
}

func (m *mockImageStore) Save(r io.Reader) (string, error) {
	return m.saveFunc(r)
}

func (m *mockImageStore) Remove(name string) error {
	m.removed = append(m.removed, name)
	return m.removeErr
}

// newTestServer 构造只接通 catalog 与 images 的服务器，
// 并以固定用户身份注册菜谱路由。
func newTestServer(catalog CatalogStore, images ImageStore, userID uint) (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	s := &Server{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		catalog: catalog,
		images:  images,
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetUserID(c, userID)
		c.Next()
	})
	r.GET("/recipe/tags", s.handleListTags)
	r.POST("/recipe/tags", s.handleCreateTag)
	r.GET("/recipe/ingredients", s.handleListIngredients)
	r.POST("/recipe/ingredients", s.handleCreateIngredient)
	r.GET("/recipe/recipes", s.handleListRecipes)
	r.POST("/recipe/recipes", s.handleCreateRecipe)
	r.GET("/recipe/recipes/:id", s.handleGetRecipe)
	r.PUT("/recipe/recipes/:id", s.handleReplaceRecipe)
	r.PATCH("/recipe/recipes/:id", s.handlePatchRecipe)
	r.DELETE("/recipe/recipes/:id", s.handleDeleteRecipe)
	r.POST("/recipe/recipes/:id/upload-image", s.handleUploadImage)
	return s, r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListTags_ScopedToUser(t *testing.T) {
	var gotUserID uint
	var gotAssigned bool
	catalog := &mockCatalogStore{
		listTagsFunc: func(ctx context.Context, userID uint, assignedOnly bool) ([]model.Tag, error) {
			gotUserID = userID
			gotAssigned = assignedOnly
			return []model.Tag{
				{ID: 2, UserID: userID, Name: "Vegan"},
				{ID: 1, UserID: userID, Name: "Dessert"},
			}, nil
		},
	}
	_, r := newTestServer(catalog, &mockImageStore{}, 7)

	w := doJSON(t, r, http.MethodGet, "/recipe/tags", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotUserID != 7 {
		t.Fatalf("expected list scoped to user 7, got %d", gotUserID)
	}
	if gotAssigned {
		t.Fatalf("assigned_only must default to false")
	}
	var resp []tagResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp) != 2 || resp[0].Name != "Vegan" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestListTags_AssignedOnly(t *testing.T) {
	var gotAssigned bool
	catalog := &mockCatalogStore{
		listTagsFunc: func(ctx context.Context, userID uint, assignedOnly bool) ([]model.Tag, error) {
			gotAssigned = assignedOnly
			return []model.Tag{}, nil
		},
	}
	_, r := newTestServer(catalog, &mockImageStore{}, 7)

	w := doJSON(t, r, http.MethodGet, "/recipe/tags?assigned_only=1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !gotAssigned {
		t.Fatalf("expected assigned_only=1 to be honored")
	}
	if w.Body.String() != "[]" {
		t.Fatalf("expected empty JSON array, got %s", w.Body.String())
	}
}

func TestCreateTag_AssignsOwner(t *testing.T) {
	var created *model.Tag
	catalog := &mockCatalogStore{
		createTagFunc: func(ctx context.Context, tag *model.Tag) error {
			tag.ID = 11
			created = tag
			return nil
		},
	}
	_, r := newTestServer(catalog, &mockImageStore{}, 5)

	w := doJSON(t, r, http.MethodPost, "/recipe/tags", map[string]string{"name": "Comfort Food"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if created == nil || created.UserID != 5 {
		t.Fatalf("expected tag owned by user 5, got %+v", created)
	}
	if created.Name != "Comfort Food" {
		t.Fatalf("unexpected tag name %q", created.Name)
	}
}

func TestCreateTag_MissingName(t *testing.T) {
	catalog := &mockCatalogStore{
		createTagFunc: func(ctx context.Context, tag *model.Tag) error {
			t.Fatal("store must not be reached on binding failure")
			return nil
		},
	}
	_, r := newTestServer(catalog, &mockImageStore{}, 5)

	w := doJSON(t, r, http.MethodPost, "/recipe/tags", map[string]string{"name": ""})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListIngredients_AssignedOnly(t *testing.T) {
	var gotAssigned bool
	catalog := &mockCatalogStore{
		listIngredientsFunc: func(ctx context.Context, userID uint, assignedOnly bool) ([]model.Ingredient, error) {
			gotAssigned = assignedOnly
			return []model.Ingredient{{ID: 3, UserID: userID, Name: "Kale"}}, nil
		},
	}
	_, r := newTestServer(catalog, &mockImageStore{}, 7)

	w := doJSON(t, r, http.MethodGet, "/recipe/ingredients?assigned_only=true", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !gotAssigned {
		t.Fatalf("expected assigned_only=true to be honored")
	}
}

func TestCreateIngredient_AssignsOwner(t *testing.T) {
	var created *model.Ingredient
	catalog := &mockCatalogStore{
		createIngredientFunc: func(ctx context.Context, ingredient *model.Ingredient) error {
			ingredient.ID = 4
			created = ingredient
			return nil
		},
	}
	_, r := newTestServer(catalog, &mockImageStore{}, 8)

	w := doJSON(t, r, http.MethodPost, "/recipe/ingredients", map[string]string{"name": "Salt"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if created == nil || created.UserID != 8 || created.Name != "Salt" {
		t.Fatalf("unexpected ingredient: %+v", created)
	}
}
