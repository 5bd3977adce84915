package mocks

import (
	"context"

	"bookapi/internal/model"
	"bookapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockChapterRepository struct {
	mock.Mock
}

func (m *MockChapterRepository) Create(ctx context.Context, ch *model.Chapter) (*model.Chapter, error) {
	args := m.Called(ctx, ch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chapter), args.Error(1)
}

func (m *MockChapterRepository) FindByID(ctx context.Context, id string) (*model.Chapter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chapter), args.Error(1)
}

func (m *MockChapterRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Chapter], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Chapter]), args.Error(1)
}

func (m *MockChapterRepository) ListAll(ctx context.Context) ([]model.Chapter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Chapter), args.Error(1)
}

func (m *MockChapterRepository) Update(ctx context.Context, ch *model.Chapter) (*model.Chapter, error) {
	args := m.Called(ctx, ch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chapter), args.Error(1)
}

func (m *MockChapterRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChapterRepository) MaxPosition(ctx context.Context, part string) (int, error) {
	args := m.Called(ctx, part)
	return args.Int(0), args.Error(1)
}

func (m *MockChapterRepository) PartOrder(ctx context.Context, part string) (int, error) {
	args := m.Called(ctx, part)
	return args.Int(0), args.Error(1)
}

func (m *MockChapterRepository) PathExists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockChapterRepository) ReplaceAll(ctx context.Context, chapters []model.Chapter) error {
	args := m.Called(ctx, chapters)
	return args.Error(0)
}
