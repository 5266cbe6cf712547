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
	"github.com/wounsee/forum/internal/security"
)

// CommentHandler はコメントのHTTPハンドラー。
// コメント本文も投稿と同じサニタイズパイプラインを通す。
type CommentHandler struct {
	comments  repository.CommentRepository
	posts     repository.PostRepository
	sanitizer security.ContentSanitizerService
	recorder  ContentRecorder
}

// NewCommentHandler はCommentHandlerを生成する。recorderはnilでもよい。
func NewCommentHandler(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	sanitizer security.ContentSanitizerService,
	recorder ContentRecorder,
) *CommentHandler {
	return &CommentHandler{
		comments:  comments,
		posts:     posts,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// createCommentRequest はコメント作成リクエストのボディ。
type createCommentRequest struct {
	Content string `json:"content"`
}

// commentResponse はコメント情報のAPIレスポンス。
type commentResponse struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Create は投稿へのコメントを作成する。
// POST /api/posts/:id/comments （認証必須）
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	postID := chi.URLParam(r, "id")

	post, err := h.posts.FindByID(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if post == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPostNotFoundError(postID))
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("contentが空です"))
		return
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		Content:   h.sanitizer.Render(req.Content),
		PostID:    postID,
		AuthorID:  user.ID,
		CreatedAt: time.Now(),
	}

	if err := h.comments.Create(r.Context(), comment); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordCommentCreated()
	}

	writeJSONResponse(w, http.StatusCreated, commentResponse{
		ID:         comment.ID,
		Content:    comment.Content,
		PostID:     comment.PostID,
		AuthorID:   comment.AuthorID,
		AuthorName: user.Name,
		CreatedAt:  comment.CreatedAt,
	})
}

// Delete はコメントを削除する。
// DELETE /api/comments/:id （管理者のみ）
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "id")

	if err := h.comments.Delete(r.Context(), commentID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toCommentResponse はmodel.CommentWithAuthorからAPIレスポンスに変換する。
func toCommentResponse(c model.CommentWithAuthor) commentResponse {
	return commentResponse{
		ID:         c.ID,
		Content:    c.Content,
		PostID:     c.PostID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		CreatedAt:  c.CreatedAt,
	}
}
