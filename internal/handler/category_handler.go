package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wounsee/forum/internal/middleware"
	"github.com/wounsee/forum/internal/model"
	"github.com/wounsee/forum/internal/repository"
)

// CategoryHandler はカテゴリ管理のHTTPハンドラー。
// 一覧は公開、作成・更新・削除は管理者のみ（ルーティング側で制御）。
type CategoryHandler struct {
	categories repository.CategoryRepository
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(categories repository.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// categoryRequest はカテゴリ作成・更新リクエストのボディ。
type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// categoryResponse はカテゴリ情報のAPIレスポンス。
type categoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	PostCount   int    `json:"post_count"`
}

// List はカテゴリ一覧を投稿数付きで返す。
// GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListWithCounts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]categoryResponse, len(categories))
	for i, c := range categories {
		results[i] = categoryResponse{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Icon:        c.Icon,
			PostCount:   c.PostCount,
		}
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// Create はカテゴリを作成する。
// POST /api/categories （管理者のみ）
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	req, ok := decodeCategoryRequest(w, r)
	if !ok {
		return
	}

	category := &model.Category{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		CreatedBy:   user.ID,
		CreatedAt:   time.Now(),
	}

	if err := h.categories.Create(r.Context(), category); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, categoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Icon:        category.Icon,
	})
}

// Update はカテゴリの名前・説明・アイコンを更新する。
// PUT /api/categories/:id （管理者のみ）
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")

	req, ok := decodeCategoryRequest(w, r)
	if !ok {
		return
	}

	category := &model.Category{
		ID:          categoryID,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
	}

	if err := h.categories.Update(r.Context(), category); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, categoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Icon:        category.Icon,
	})
}

// Delete はカテゴリを削除する。
// DELETE /api/categories/:id （管理者のみ）
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")

	if err := h.categories.Delete(r.Context(), categoryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeCategoryRequest はカテゴリリクエストのボディを解析・検証する。
func decodeCategoryRequest(w http.ResponseWriter, r *http.Request) (*categoryRequest, bool) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return nil, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("nameが空です"))
		return nil, false
	}

	return &req, true
}
