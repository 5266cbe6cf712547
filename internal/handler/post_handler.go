package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wounsee/forum/internal/middleware"
	"github.com/wounsee/forum/internal/model"
	"github.com/wounsee/forum/internal/repository"
	"github.com/wounsee/forum/internal/security"
	"github.com/wounsee/forum/internal/storage"
)

// ContentRecorder はコンテンツ作成のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type ContentRecorder interface {
	RecordPostCreated()
	RecordCommentCreated()
}

// PostHandler は投稿のHTTPハンドラー。
// 投稿本文はサニタイズ済みHTMLのみを永続化する。
type PostHandler struct {
	posts       repository.PostRepository
	categories  repository.CategoryRepository
	comments    repository.CommentRepository
	sanitizer   security.ContentSanitizerService
	attachments storage.AttachmentStore
	recorder    ContentRecorder
	maxUpload   int64
}

// NewPostHandler はPostHandlerを生成する。recorderはnilでもよい。
func NewPostHandler(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	comments repository.CommentRepository,
	sanitizer security.ContentSanitizerService,
	attachments storage.AttachmentStore,
	recorder ContentRecorder,
	maxUpload int64,
) *PostHandler {
	return &PostHandler{
		posts:       posts,
		categories:  categories,
		comments:    comments,
		sanitizer:   sanitizer,
		attachments: attachments,
		recorder:    recorder,
		maxUpload:   maxUpload,
	}
}

// postListItemResponse は投稿一覧のAPIレスポンス。
type postListItemResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	AuthorName   string    `json:"author_name"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// postDetailResponse は投稿詳細のAPIレスポンス。
type postDetailResponse struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	CategoryID     string            `json:"category_id"`
	CategoryName   string            `json:"category_name"`
	AuthorID       string            `json:"author_id"`
	AuthorName     string            `json:"author_name"`
	AttachmentPath string            `json:"attachment_path,omitempty"`
	CommentCount   int               `json:"comment_count"`
	CreatedAt      time.Time         `json:"created_at"`
	Comments       []commentResponse `json:"comments"`
}

// List は投稿一覧をメタ情報・抜粋付きで返す。
// GET /api/posts?sort=&limit=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	sort := model.PostSortNewest
	if s := r.URL.Query().Get("sort"); s != "" {
		sort = model.PostSort(s)
		if !sort.IsValid() {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("sortはnewest/oldest/popularのいずれかです"))
			return
		}
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limitは正の整数です"))
			return
		}
		limit = n
	}

	posts, err := h.posts.List(r.Context(), sort, limit)
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

// Get は投稿詳細をコメント付きで返す。
// GET /api/posts/:id
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	comments, err := h.comments.ListByPost(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	commentResults := make([]commentResponse, len(comments))
	for i, c := range comments {
		commentResults[i] = toCommentResponse(c)
	}

	writeJSONResponse(w, http.StatusOK, postDetailResponse{
		ID:             post.ID,
		Title:          post.Title,
		Content:        post.Content,
		CategoryID:     post.CategoryID,
		CategoryName:   post.CategoryName,
		AuthorID:       post.AuthorID,
		AuthorName:     post.AuthorName,
		AttachmentPath: post.AttachmentPath,
		CommentCount:   post.CommentCount,
		CreatedAt:      post.CreatedAt,
		Comments:       commentResults,
	})
}

// Create は投稿を作成する。
// POST /api/posts （認証必須、multipart/form-data）
// content（生マークアップ）はサニタイズ済みHTMLに変換してから永続化する。
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	// フォーム全体のサイズ上限。超過はParseMultipartFormがエラーを返す。
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewUploadTooLargeError(h.maxUpload))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("multipartフォームの解析に失敗しました"))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	categoryID := r.FormValue("category_id")
	content := r.FormValue("content")

	if title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("titleが空です"))
		return
	}
	if categoryID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("category_idが空です"))
		return
	}
	if strings.TrimSpace(content) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("contentが空です"))
		return
	}

	category, err := h.categories.FindByID(r.Context(), categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if category == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewCategoryNotFoundError(categoryID))
		return
	}

	attachmentPath := ""
	if file, header, err := r.FormFile("attachment"); err == nil {
		defer file.Close()

		path, err := h.attachments.Save(header.Filename, file)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("添付ファイルを保存できません"))
			return
		}
		attachmentPath = path
	}

	now := time.Now()
	post := &model.Post{
		ID:             uuid.New().String(),
		Title:          title,
		Content:        h.sanitizer.Render(content),
		CategoryID:     categoryID,
		AuthorID:       user.ID,
		AttachmentPath: attachmentPath,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.posts.Create(r.Context(), post); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordPostCreated()
	}

	writeJSONResponse(w, http.StatusCreated, postDetailResponse{
		ID:             post.ID,
		Title:          post.Title,
		Content:        post.Content,
		CategoryID:     post.CategoryID,
		CategoryName:   category.Name,
		AuthorID:       post.AuthorID,
		AuthorName:     user.Name,
		AttachmentPath: post.AttachmentPath,
		CreatedAt:      post.CreatedAt,
		Comments:       []commentResponse{},
	})
}

// Delete は投稿を削除する。関連コメントはCASCADE削除される。
// DELETE /api/posts/:id （管理者のみ）
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.posts.Delete(r.Context(), postID); err != nil {
		handleServiceError(w, err)
		return
	}

	// 添付ファイルの削除はベストエフォート
	if post.AttachmentPath != "" {
		_ = h.attachments.Remove(post.AttachmentPath)
	}

	w.WriteHeader(http.StatusNoContent)
}
