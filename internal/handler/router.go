package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wounsee/forum/internal/metrics"
	"github.com/wounsee/forum/internal/middleware"
	"github.com/wounsee/forum/internal/model"
	"github.com/wounsee/forum/internal/repository"
	"github.com/wounsee/forum/internal/security"
	"github.com/wounsee/forum/internal/storage"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface

	// フォーラム
	Users      repository.UserRepository
	Categories repository.CategoryRepository
	Posts      repository.PostRepository
	Comments   repository.CommentRepository

	// コンテンツ処理
	Sanitizer   security.ContentSanitizerService
	Attachments storage.AttachmentStore
	MaxUpload   int64

	// 死活監視
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS →（認証ルートのみ）Auth → RateLimit →（管理ルートのみ）RequireRole
//
// 公開の参照系ルートと/auth/google、/healthは認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.CORSAllowedOrigin != "" {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	}

	var recorder LoginRecorder
	var contentRecorder ContentRecorder
	if deps.Collector != nil {
		recorder = deps.Collector
		contentRecorder = deps.Collector
	}

	authHandler := NewAuthHandler(deps.AuthService, recorder)
	categoryHandler := NewCategoryHandler(deps.Categories)
	postHandler := NewPostHandler(deps.Posts, deps.Categories, deps.Comments,
		deps.Sanitizer, deps.Attachments, contentRecorder, deps.MaxUpload)
	commentHandler := NewCommentHandler(deps.Comments, deps.Posts, deps.Sanitizer, contentRecorder)
	adminHandler := NewAdminHandler(deps.Users, deps.Posts)

	authMW := middleware.NewAuthMiddleware(deps.SessionResolver)

	// --- 認証不要のルート ---

	r.Post("/auth/google", authHandler.Login)
	r.With(authMW).Get("/auth/verify", authHandler.Verify)

	r.Get("/api/categories", categoryHandler.List)
	r.Get("/api/posts", postHandler.List)
	r.Get("/api/posts/{id}", postHandler.Get)

	if deps.DB != nil {
		r.Get("/health", NewHealthHandler(deps.DB))
	}

	// 添付ファイルの静的配信
	if store, ok := deps.Attachments.(*storage.LocalAttachmentStore); ok {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(store.Dir())))
		r.Handle("/uploads/*", fs)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		writeMW := deps.RateLimiter.WriteOperationMiddleware()

		// 投稿・コメント作成は書き込み専用レート制限を追加
		r.With(writeMW).Post("/api/posts", postHandler.Create)
		r.With(writeMW).Post("/api/posts/{id}/comments", commentHandler.Create)
	})

	// --- 管理者のみのルート ---
	// ミドルウェアスタック: Auth → RateLimit(General) → RequireRole(admin)
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewRequireRoleMiddleware(model.RoleAdmin))

		r.Post("/api/categories", categoryHandler.Create)
		r.Put("/api/categories/{id}", categoryHandler.Update)
		r.Delete("/api/categories/{id}", categoryHandler.Delete)

		r.Delete("/api/posts/{id}", postHandler.Delete)
		r.Delete("/api/comments/{id}", commentHandler.Delete)

		r.Get("/api/admin/users", adminHandler.ListUsers)
		r.Get("/api/admin/posts", adminHandler.ListPosts)
	})

	return r
}
