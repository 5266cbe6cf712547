package handler

import (
	"context"
	"fmt"
	"io"

	"github.com/wounsee/forum/internal/model"
	"github.com/wounsee/forum/internal/repository"
	"github.com/wounsee/forum/internal/security"
	"github.com/wounsee/forum/internal/storage"
)

// --- リポジトリモック ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
	upsertFn   func(ctx context.Context, identity *model.VerifiedIdentity, initialRole model.Role) (*model.User, error)
	listFn     func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Upsert(ctx context.Context, identity *model.VerifiedIdentity, initialRole model.Role) (*model.User, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, identity, initialRole)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockCategoryRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.Category, error)
	listWithCountsFn func(ctx context.Context) ([]model.CategoryWithCount, error)
	createFn         func(ctx context.Context, category *model.Category) error
	updateFn         func(ctx context.Context, category *model.Category) error
	deleteFn         func(ctx context.Context, id string) error
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCategoryRepo) ListWithCounts(ctx context.Context) ([]model.CategoryWithCount, error) {
	if m.listWithCountsFn != nil {
		return m.listWithCountsFn(ctx)
	}
	return nil, nil
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	if m.createFn != nil {
		return m.createFn(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockPostRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.PostWithMeta, error)
	listFn     func(ctx context.Context, sort model.PostSort, limit int) ([]model.PostWithMeta, error)
	createFn   func(ctx context.Context, post *model.Post) error
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.PostWithMeta, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPostRepo) List(ctx context.Context, sort model.PostSort, limit int) ([]model.PostWithMeta, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sort, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockCommentRepo struct {
	listByPostFn func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
	createFn     func(ctx context.Context, comment *model.Comment) error
	deleteFn     func(ctx context.Context, id string) error
}

func (m *mockCommentRepo) ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	if m.listByPostFn != nil {
		return m.listByPostFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	if m.createFn != nil {
		return m.createFn(ctx, comment)
	}
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- その他のモック ---

// mockResolver はセッショントークンからユーザーを解決するモック。
type mockResolver struct {
	users map[string]*model.User
}

func (m *mockResolver) GetUserBySession(ctx context.Context, token string) (*model.User, error) {
	if user, ok := m.users[token]; ok {
		return user, nil
	}
	return nil, model.NewUnauthenticatedError()
}

// passthroughSanitizer は入力をそのまま返すサニタイザー。変換結果の検証が不要なテスト用。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Render(rawMarkup string) string {
	return rawMarkup
}

// mockAttachmentStore はメモリ上に保存内容を記録するモック。
type mockAttachmentStore struct {
	saved   map[string][]byte
	removed []string
}

func newMockAttachmentStore() *mockAttachmentStore {
	return &mockAttachmentStore{saved: make(map[string][]byte)}
}

func (m *mockAttachmentStore) Save(originalName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("/uploads/mock-%d%s", len(m.saved), extOf(originalName))
	m.saved[path] = data
	return path, nil
}

func (m *mockAttachmentStore) Remove(storedPath string) error {
	m.removed = append(m.removed, storedPath)
	delete(m.saved, storedPath)
	return nil
}

func extOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}
	return ""
}

// compile-time interface checks
var (
	_ repository.UserRepository     = (*mockUserRepo)(nil)
	_ repository.CategoryRepository = (*mockCategoryRepo)(nil)
	_ repository.PostRepository     = (*mockPostRepo)(nil)
	_ repository.CommentRepository  = (*mockCommentRepo)(nil)
	_ storage.AttachmentStore       = (*mockAttachmentStore)(nil)
	_ security.ContentSanitizerService = passthroughSanitizer{}
)
