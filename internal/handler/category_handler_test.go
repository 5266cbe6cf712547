package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wounsee/forum/internal/middleware"
	"github.com/wounsee/forum/internal/model"
)

func TestCategoryHandler_List_ReturnsCountsIncludingZero(t *testing.T) {
	repo := &mockCategoryRepo{
		listWithCountsFn: func(ctx context.Context) ([]model.CategoryWithCount, error) {
			return []model.CategoryWithCount{
				{Category: model.Category{ID: "c-1", Name: "general"}, PostCount: 3},
				{Category: model.Category{ID: "c-2", Name: "empty"}, PostCount: 0},
			}, nil
		},
	}
	h := NewCategoryHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body []categoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("len = %d, want 2", len(body))
	}
	if body[0].PostCount != 3 {
		t.Errorf("post_count = %d, want 3", body[0].PostCount)
	}
	// 投稿のないカテゴリもカウント0で含まれる
	if body[1].Name != "empty" || body[1].PostCount != 0 {
		t.Errorf("empty category = %+v", body[1])
	}
}

func TestCategoryHandler_Create_SetsCreatorAndID(t *testing.T) {
	var created *model.Category
	repo := &mockCategoryRepo{
		createFn: func(ctx context.Context, category *model.Category) error {
			created = category
			return nil
		},
	}
	h := NewCategoryHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/categories",
		strings.NewReader(`{"name":"help","description":"質問","icon":"❓"}`))
	admin := &model.User{ID: "admin-1", Role: model.RoleAdmin}
	req = req.WithContext(middleware.ContextWithUser(req.Context(), admin))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	if created == nil {
		t.Fatal("Create should be called")
	}
	if created.ID == "" {
		t.Error("ID should be assigned")
	}
	if created.CreatedBy != "admin-1" {
		t.Errorf("CreatedBy = %q, want admin-1", created.CreatedBy)
	}
	if created.Name != "help" {
		t.Errorf("Name = %q, want help", created.Name)
	}
}

func TestCategoryHandler_Create_EmptyName_Returns400(t *testing.T) {
	repo := &mockCategoryRepo{
		createFn: func(ctx context.Context, category *model.Category) error {
			t.Fatal("Create should not be called")
			return nil
		},
	}
	h := NewCategoryHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"  "}`))
	admin := &model.User{ID: "admin-1", Role: model.RoleAdmin}
	req = req.WithContext(middleware.ContextWithUser(req.Context(), admin))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestCategoryHandler_Update_NotFound_Returns404(t *testing.T) {
	repo := &mockCategoryRepo{
		updateFn: func(ctx context.Context, category *model.Category) error {
			return model.NewCategoryNotFoundError(category.ID)
		},
	}
	h := NewCategoryHandler(repo)

	r := chi.NewRouter()
	r.Put("/api/categories/{id}", h.Update)

	req := httptest.NewRequest(http.MethodPut, "/api/categories/c-missing",
		strings.NewReader(`{"name":"renamed"}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeCategoryNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeCategoryNotFound)
	}
}

func TestCategoryHandler_Delete_Success(t *testing.T) {
	var deletedID string
	repo := &mockCategoryRepo{
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	h := NewCategoryHandler(repo)

	r := chi.NewRouter()
	r.Delete("/api/categories/{id}", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/api/categories/c-1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if deletedID != "c-1" {
		t.Errorf("deleted ID = %q, want c-1", deletedID)
	}
}
