package handler

import (
	"net/http"
	"time"

	"github.com/wounsee/forum/internal/model"
	"github.com/wounsee/forum/internal/repository"
	"github.com/wounsee/forum/internal/security"
)

// AdminHandler は管理画面向けのHTTPハンドラー。
// 全ルートが管理者ロール必須（ルーティング側で制御）。
type AdminHandler struct {
	users repository.UserRepository
	posts repository.PostRepository
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(users repository.UserRepository, posts repository.PostRepository) *AdminHandler {
	return &AdminHandler{
		users: users,
		posts: posts,
	}
}

// adminUserResponse は管理画面のユーザー一覧レスポンス。
type adminUserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUsers は全ユーザーを作成日時の降順で返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]adminUserResponse, len(users))
	for i, u := range users {
		results[i] = adminUserResponse{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      string(u.Role),
			CreatedAt: u.CreatedAt,
		}
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// adminPostListLimit はモデレーション一覧の取得件数。
const adminPostListLimit = 100

// ListPosts はモデレーション用の投稿一覧を新着順で返す。
// GET /api/admin/posts
func (h *AdminHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context(), model.PostSortNewest, adminPostListLimit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]postListItemResponse, len(posts))
	for i, p := range posts {
		results[i] = postListItemResponse{
			ID:           p.ID,
			Title:        p.Title,
			Excerpt:      security.Excerpt(p.Content),
			CategoryID:   p.CategoryID,
			CategoryName: p.CategoryName,
			AuthorName:   p.AuthorName,
			CommentCount: p.CommentCount,
			CreatedAt:    p.CreatedAt,
		}
	}

	writeJSONResponse(w, http.StatusOK, results)
}
