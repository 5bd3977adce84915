package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"bookapi/internal/model"
	"bookapi/internal/repository"
	repoMocks "bookapi/internal/repository/mocks"
	"bookapi/internal/storage"
	storeMocks "bookapi/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const importInput = `# Summary

- [Connecting to the Database](connecting.md)
- [Writing To the Database]()

# Development

- [Contributing](contributing.md)
`

func newTestService() (*storeMocks.MockStorage, *repoMocks.MockChapterRepository, BookService) {
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockChapterRepository)
	return mStore, mRepo, NewBookService(mStore, mRepo)
}

func TestBookService_ImportSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces chapters and relinks content by path", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()

		existing := []model.Chapter{{
			ID:          "keep-id",
			Part:        "Summary",
			Position:    0,
			Title:       "Connecting",
			Path:        "connecting.md",
			StoragePath: "chapters/keep.md",
			Size:        128,
			ContentType: "text/markdown",
			CreatedAt:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		}}
		mRepo.On("ListAll", ctx).Return(existing, nil)

		var replaced []model.Chapter
		mRepo.On("ReplaceAll", ctx, mock.MatchedBy(func(chs []model.Chapter) bool {
			replaced = chs
			return len(chs) == 3
		})).Return(nil)

		res, err := svc.ImportSummary(ctx, strings.NewReader(importInput))
		require.NoError(t, err)

		assert.Equal(t, 2, res.Parts)
		assert.Equal(t, 3, res.Chapters)
		assert.Equal(t, 1, res.Drafts)
		assert.Equal(t, 1, res.Relinked)

		// The matching path keeps its ID and storage fields.
		assert.Equal(t, "keep-id", replaced[0].ID)
		assert.Equal(t, "chapters/keep.md", replaced[0].StoragePath)
		assert.Equal(t, int64(128), replaced[0].Size)
		assert.Equal(t, existing[0].CreatedAt, replaced[0].CreatedAt)
		// Title follows the imported file, not the stored row.
		assert.Equal(t, "Connecting to the Database", replaced[0].Title)

		// The draft gets a fresh ID and no content.
		assert.True(t, replaced[1].Draft)
		assert.NotEmpty(t, replaced[1].ID)
		assert.Empty(t, replaced[1].StoragePath)

		// Part order follows the document, not the part names.
		assert.Equal(t, 0, replaced[0].PartOrder)
		assert.Equal(t, 1, replaced[2].PartOrder)

		mRepo.AssertExpectations(t)
		mStore.AssertExpectations(t)
	})

	t.Run("nil reader", func(t *testing.T) {
		_, _, svc := newTestService()
		_, err := svc.ImportSummary(ctx, nil)
		assert.ErrorIs(t, err, ErrReaderNil)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, _, svc := newTestService()
		_, err := svc.ImportSummary(ctx, strings.NewReader("# Summary\ngarbage line\n"))
		assert.ErrorIs(t, err, ErrInvalidSummary)
	})

	t.Run("duplicate targets rejected", func(t *testing.T) {
		_, _, svc := newTestService()
		in := "# Summary\n- [A](a.md)\n- [B](a.md)\n"
		_, err := svc.ImportSummary(ctx, strings.NewReader(in))
		assert.ErrorIs(t, err, ErrInvalidSummary)
	})

	t.Run("repository error", func(t *testing.T) {
		_, mRepo, svc := newTestService()
		mRepo.On("ListAll", ctx).Return([]model.Chapter{}, nil)
		mRepo.On("ReplaceAll", ctx, mock.Anything).Return(errors.New("db fail"))

		_, err := svc.ImportSummary(ctx, strings.NewReader(importInput))
		assert.ErrorContains(t, err, "replace chapters: db fail")
	})
}

func TestBookService_ImportExportRoundTrip(t *testing.T) {
	// "Development" sorts before "Summary" by name, so this round trip only
	// survives when part order is persisted and drives the listing.
	ctx := context.Background()
	_, mRepo, svc := newTestService()

	mRepo.On("ListAll", ctx).Return([]model.Chapter{}, nil).Once()

	var stored []model.Chapter
	mRepo.On("ReplaceAll", ctx, mock.MatchedBy(func(chs []model.Chapter) bool {
		stored = append([]model.Chapter(nil), chs...)
		return true
	})).Return(nil)

	_, err := svc.ImportSummary(ctx, strings.NewReader(importInput))
	require.NoError(t, err)

	// Rows come back the way the repository lists them: sorted by part
	// order, then position.
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].PartOrder != stored[j].PartOrder {
			return stored[i].PartOrder < stored[j].PartOrder
		}
		return stored[i].Position < stored[j].Position
	})
	mRepo.On("ListAll", ctx).Return(stored, nil).Once()

	b, err := svc.ExportSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, importInput, string(b))
}

func TestBookService_ExportSummary(t *testing.T) {
	ctx := context.Background()
	_, mRepo, svc := newTestService()

	mRepo.On("ListAll", ctx).Return([]model.Chapter{
		{Part: "Summary", Position: 0, Title: "Connecting to the Database", Path: "connecting.md"},
		{Part: "Summary", Position: 1, Title: "Change Streams", Draft: true},
	}, nil)

	b, err := svc.ExportSummary(ctx)
	require.NoError(t, err)

	out := string(b)
	assert.Contains(t, out, "# Summary")
	assert.Contains(t, out, "- [Connecting to the Database](connecting.md)")
	assert.Contains(t, out, "- [Change Streams]()")
}

func TestBookService_List(t *testing.T) {
	ctx := context.Background()
	_, mRepo, svc := newTestService()

	mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
		Return(&repository.PageResult[model.Chapter]{
			Items: []model.Chapter{{ID: "a"}},
			Total: 1,
		}, nil)

	// Non-positive limit and negative offset fall back to defaults.
	res, err := svc.List(ctx, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	mRepo.AssertExpectations(t)
}

func TestBookService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		_, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "id-1").Return(&model.Chapter{ID: "id-1"}, nil)

		ch, err := svc.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "id-1", ch.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		_, err := svc.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, _, svc := newTestService()
		_, err := svc.Get(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestBookService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("appends to part", func(t *testing.T) {
		_, mRepo, svc := newTestService()
		mRepo.On("MaxPosition", ctx, "Development").Return(2, nil)
		mRepo.On("PartOrder", ctx, "Development").Return(1, nil)
		mRepo.On("Create", ctx, mock.MatchedBy(func(ch *model.Chapter) bool {
			return ch.Part == "Development" && ch.PartOrder == 1 && ch.Position == 3 && !ch.Draft && ch.Path == "style.md"
		})).Return(&model.Chapter{ID: "gen-id"}, nil)

		ch, err := svc.Create(ctx, NewChapter{Part: "Development", Title: "Style Guide", Path: "style.md"})
		require.NoError(t, err)
		assert.Equal(t, "gen-id", ch.ID)
		mRepo.AssertExpectations(t)
	})

	t.Run("defaults to Summary part and draft without path", func(t *testing.T) {
		_, mRepo, svc := newTestService()
		mRepo.On("MaxPosition", ctx, "Summary").Return(-1, nil)
		mRepo.On("PartOrder", ctx, "Summary").Return(0, nil)
		mRepo.On("Create", ctx, mock.MatchedBy(func(ch *model.Chapter) bool {
			return ch.Part == "Summary" && ch.PartOrder == 0 && ch.Position == 0 && ch.Draft
		})).Return(&model.Chapter{ID: "gen-id"}, nil)

		_, err := svc.Create(ctx, NewChapter{Title: "Sessions and Transactions"})
		require.NoError(t, err)
	})

	t.Run("title required", func(t *testing.T) {
		_, _, svc := newTestService()
		_, err := svc.Create(ctx, NewChapter{Title: "  "})
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("invalid path", func(t *testing.T) {
		_, _, svc := newTestService()
		_, err := svc.Create(ctx, NewChapter{Title: "Escape", Path: "../outside.md"})
		assert.ErrorIs(t, err, ErrInvalidSummary)
	})
}

func TestBookService_AttachContent(t *testing.T) {
	ctx := context.Background()

	chapter := func() *model.Chapter {
		return &model.Chapter{
			ID:    "ch-1",
			Part:  "Summary",
			Title: "Writing To the Database",
			Draft: true,
		}
	}

	t.Run("uploads and clears draft", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(chapter(), nil)
		mRepo.On("PathExists", ctx, "writing-to-the-database.md").Return(false, nil)

		r := strings.NewReader("# Writing\n")
		mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "chapters/") && strings.HasSuffix(key, ".md")
		}), r, storage.PutObjectOptions{
			Size:        10,
			ContentType: "text/markdown",
			Metadata:    map[string]string{"original-filename": "writing.md"},
		}).Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
		}, nil)

		mRepo.On("Update", ctx, mock.MatchedBy(func(ch *model.Chapter) bool {
			return !ch.Draft && ch.Path == "writing-to-the-database.md" && ch.Size == 10
		})).Return(&model.Chapter{ID: "ch-1", Draft: false}, nil)

		ch, err := svc.AttachContent(ctx, "ch-1", r, "writing.md", "text/markdown", 10)
		require.NoError(t, err)
		assert.False(t, ch.Draft)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("draft whose slug is taken gets a numeric suffix", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(chapter(), nil)
		// Another chapter already links writing-to-the-database.md, so
		// filling this draft with the same slug must not duplicate the
		// target (a summary with duplicate links fails validation).
		mRepo.On("PathExists", ctx, "writing-to-the-database.md").Return(true, nil)
		mRepo.On("PathExists", ctx, "writing-to-the-database-2.md").Return(false, nil)

		r := strings.NewReader("body")
		mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
			}, nil)

		mRepo.On("Update", ctx, mock.MatchedBy(func(ch *model.Chapter) bool {
			return !ch.Draft && ch.Path == "writing-to-the-database-2.md"
		})).Return(&model.Chapter{ID: "ch-1", Path: "writing-to-the-database-2.md"}, nil)

		ch, err := svc.AttachContent(ctx, "ch-1", r, "writing.md", "text/markdown", 4)
		require.NoError(t, err)
		assert.Equal(t, "writing-to-the-database-2.md", ch.Path)
		mRepo.AssertExpectations(t)
	})

	t.Run("path check failure skips the upload", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(chapter(), nil)
		mRepo.On("PathExists", ctx, mock.Anything).Return(false, errors.New("db fail"))

		_, err := svc.AttachContent(ctx, "ch-1", strings.NewReader("body"), "writing.md", "text/markdown", 4)
		assert.ErrorContains(t, err, "check link path")
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rolls back storage when update fails", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(chapter(), nil)
		mRepo.On("PathExists", ctx, mock.Anything).Return(false, nil)

		r := strings.NewReader("body")
		mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key}
			}, nil)
		mRepo.On("Update", ctx, mock.Anything).Return(nil, errors.New("db fail"))
		mStore.On("Delete", ctx, mock.Anything).Return(nil)

		_, err := svc.AttachContent(ctx, "ch-1", r, "writing.md", "text/markdown", 4)
		assert.ErrorContains(t, err, "db update failed: db fail")
		mStore.AssertExpectations(t)
	})

	t.Run("reports failed rollback", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(chapter(), nil)
		mRepo.On("PathExists", ctx, mock.Anything).Return(false, nil)

		r := strings.NewReader("body")
		mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key}
			}, nil)
		mRepo.On("Update", ctx, mock.Anything).Return(nil, errors.New("db fail"))
		mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))

		_, err := svc.AttachContent(ctx, "ch-1", r, "writing.md", "text/markdown", 4)
		assert.ErrorContains(t, err, "rollback delete failed: delete fail")
	})

	t.Run("replacing content deletes the old object", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		existing := chapter()
		existing.Draft = false
		existing.Path = "writing.md"
		existing.StoragePath = "chapters/old.md"
		mRepo.On("FindByID", ctx, "ch-1").Return(existing, nil)

		r := strings.NewReader("body")
		mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key}
			}, nil)
		mRepo.On("Update", ctx, mock.Anything).Return(existing, nil)
		mStore.On("Delete", ctx, "chapters/old.md").Return(nil)

		_, err := svc.AttachContent(ctx, "ch-1", r, "writing.md", "text/markdown", 4)
		require.NoError(t, err)
		mStore.AssertExpectations(t)
	})

	t.Run("nil reader", func(t *testing.T) {
		_, _, svc := newTestService()
		_, err := svc.AttachContent(ctx, "ch-1", nil, "x.md", "text/markdown", 0)
		assert.ErrorIs(t, err, ErrReaderNil)
	})
}

func TestBookService_Content(t *testing.T) {
	ctx := context.Background()

	t.Run("streams stored content", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(&model.Chapter{ID: "ch-1", StoragePath: "chapters/a.md"}, nil)
		mStore.On("Get", ctx, "chapters/a.md").
			Return(io.NopCloser(strings.NewReader("body")), storage.ObjectInfo{Key: "chapters/a.md", Size: 4}, nil)

		rc, info, err := svc.Content(ctx, "ch-1")
		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, int64(4), info.Size)
	})

	t.Run("no content", func(t *testing.T) {
		_, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(&model.Chapter{ID: "ch-1"}, nil)

		_, _, err := svc.Content(ctx, "ch-1")
		assert.ErrorIs(t, err, ErrNoContent)
	})
}

func TestBookService_ContentURL(t *testing.T) {
	ctx := context.Background()
	mStore, mRepo, svc := newTestService()

	mRepo.On("FindByID", ctx, "ch-1").Return(&model.Chapter{ID: "ch-1", StoragePath: "chapters/a.md"}, nil)
	mStore.On("PresignGet", ctx, "chapters/a.md", 15*time.Minute).
		Return("https://minio.local/presigned", nil)

	url, err := svc.ContentURL(ctx, "ch-1", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://minio.local/presigned", url)
}

func TestBookService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes content then row", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(&model.Chapter{ID: "ch-1", StoragePath: "chapters/a.md"}, nil)
		mStore.On("Delete", ctx, "chapters/a.md").Return(nil)
		mRepo.On("Delete", ctx, "ch-1").Return(nil)

		assert.NoError(t, svc.Delete(ctx, "ch-1"))
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("keeps row when storage delete fails", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(&model.Chapter{ID: "ch-1", StoragePath: "chapters/a.md"}, nil)
		mStore.On("Delete", ctx, "chapters/a.md").Return(errors.New("storage fail"))

		err := svc.Delete(ctx, "ch-1")
		assert.ErrorContains(t, err, "delete storage")
		mRepo.AssertNotCalled(t, "Delete", ctx, "ch-1")
	})

	t.Run("draft without content skips storage", func(t *testing.T) {
		mStore, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "ch-1").Return(&model.Chapter{ID: "ch-1", Draft: true}, nil)
		mRepo.On("Delete", ctx, "ch-1").Return(nil)

		assert.NoError(t, svc.Delete(ctx, "ch-1"))
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		_, mRepo, svc := newTestService()
		mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrNotFound)
	})
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Writing To the Database", "writing-to-the-database"},
		{"Serde Integration", "serde-integration"},
		{"  Change   Streams  ", "change-streams"},
		{"C++ & Go!", "c-go"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in))
	}
}
