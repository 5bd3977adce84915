package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookapi/internal/model"
	"bookapi/internal/repository"
	"bookapi/internal/storage"
	"bookapi/internal/summary"
)

var (
	ErrIDRequired     = errors.New("id is required")
	ErrTitleRequired  = errors.New("title is required")
	ErrNotFound       = errors.New("chapter not found")
	ErrNoContent      = errors.New("chapter has no content")
	ErrReaderNil      = errors.New("reader is nil")
	ErrInvalidSummary = errors.New("invalid summary")
)

// DefaultPart is the part a chapter lands in when none is given. It matches
// the user-facing heading of the summary format.
const DefaultPart = "Summary"

// ChapterListResult is the service-level DTO for paginated chapters.
type ChapterListResult struct {
	Items []model.Chapter `json:"data"`
	Total int             `json:"total"`
}

// ImportResult reports what a summary import produced.
type ImportResult struct {
	Parts    int `json:"parts"`
	Chapters int `json:"chapters"`
	Drafts   int `json:"drafts"`
	// Relinked counts chapters whose attached content survived the import
	// because their link path did.
	Relinked int `json:"relinked"`
}

// NewChapter holds the caller-supplied fields for chapter creation.
type NewChapter struct {
	Part  string `json:"part"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// BookService defines the use cases for managing the book's table of
// contents and its chapter content.
type BookService interface {
	// ImportSummary parses and validates a summary file and replaces the
	// stored table of contents with it. Content attached to chapters whose
	// link path survives the import is carried over.
	ImportSummary(ctx context.Context, r io.Reader) (*ImportResult, error)

	// Summary returns the stored table of contents in its structured form.
	Summary(ctx context.Context) (*summary.Summary, error)

	// ExportSummary renders the stored table of contents to its canonical
	// markdown form.
	ExportSummary(ctx context.Context) ([]byte, error)

	// List returns chapters in book order using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*ChapterListResult, error)

	// Get returns a single chapter by its ID.
	Get(ctx context.Context, id string) (*model.Chapter, error)

	// Create appends a chapter at the end of its part. A chapter without a
	// link path is created as a draft.
	Create(ctx context.Context, nc NewChapter) (*model.Chapter, error)

	// AttachContent uploads markdown content for the chapter to object
	// storage and clears its draft flag. Storage is rolled back if the
	// metadata update fails.
	AttachContent(ctx context.Context, id string, r io.Reader, originalFilename string, contentType string, size int64) (*model.Chapter, error)

	// Content returns a streaming reader over the chapter's stored content.
	Content(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)

	// ContentURL returns a presigned download URL for the chapter's content.
	ContentURL(ctx context.Context, id string, expiry time.Duration) (string, error)

	// Delete removes a chapter and its stored content.
	Delete(ctx context.Context, id string) error
}

// bookService is a concrete implementation of BookService.
type bookService struct {
	store storage.Storage
	repo  repository.ChapterRepository
}

// NewBookService constructs a new BookService.
func NewBookService(store storage.Storage, repo repository.ChapterRepository) BookService {
	return &bookService{store: store, repo: repo}
}

func (s *bookService) ImportSummary(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	sum, err := summary.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSummary, err)
	}
	if err := sum.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSummary, err)
	}

	// Index existing chapters by link path so attached content and stable
	// IDs survive an import that keeps the path.
	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list existing chapters: %w", err)
	}
	byPath := make(map[string]model.Chapter, len(existing))
	for _, c := range existing {
		if c.Path != "" {
			byPath[c.Path] = c
		}
	}

	now := time.Now().UTC()
	chapters := sum.Chapters()
	res := &ImportResult{Parts: len(sum.Parts), Chapters: len(chapters)}
	for i := range chapters {
		ch := &chapters[i]
		if ch.Draft {
			res.Drafts++
		}
		if prev, ok := byPath[ch.Path]; ok && ch.Path != "" {
			ch.ID = prev.ID
			ch.StoragePath = prev.StoragePath
			ch.Size = prev.Size
			ch.ContentType = prev.ContentType
			ch.CreatedAt = prev.CreatedAt
			if prev.HasContent() {
				res.Relinked++
			}
		} else {
			ch.ID = uuid.New().String()
			ch.CreatedAt = now
		}
		ch.UpdatedAt = now
	}

	if err := s.repo.ReplaceAll(ctx, chapters); err != nil {
		return nil, fmt.Errorf("replace chapters: %w", err)
	}
	return res, nil
}

func (s *bookService) Summary(ctx context.Context) (*summary.Summary, error) {
	chapters, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return summary.FromChapters(chapters), nil
}

func (s *bookService) ExportSummary(ctx context.Context) ([]byte, error) {
	sum, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(sum.String()), nil
}

// List returns paginated chapters without exposing repository types.
func (s *bookService) List(ctx context.Context, limit, offset int) (*ChapterListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ChapterListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a chapter by ID.
func (s *bookService) Get(ctx context.Context, id string) (*model.Chapter, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	ch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ch, nil
}

func (s *bookService) Create(ctx context.Context, nc NewChapter) (*model.Chapter, error) {
	if strings.TrimSpace(nc.Title) == "" {
		return nil, ErrTitleRequired
	}
	part := nc.Part
	if part == "" {
		part = DefaultPart
	}
	if nc.Path != "" {
		if err := summary.ValidatePath(nc.Path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSummary, err)
		}
	}

	max, err := s.repo.MaxPosition(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}
	order, err := s.repo.PartOrder(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("part order: %w", err)
	}

	now := time.Now().UTC()
	ch := &model.Chapter{
		ID:        uuid.New().String(),
		Part:      part,
		PartOrder: order,
		Position:  max + 1,
		Title:     strings.TrimSpace(nc.Title),
		Path:      nc.Path,
		Draft:     nc.Path == "",
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.repo.Create(ctx, ch)
}

func (s *bookService) AttachContent(ctx context.Context, id string, r io.Reader, originalFilename string, contentType string, size int64) (*model.Chapter, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	ch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Filling a draft gives it a link target derived from its title. The
	// target must stay unique across the book, so colliding slugs get a
	// numeric suffix. Resolved before the upload so a taken path costs no
	// stored object.
	linkPath := ch.Path
	if ch.Draft {
		linkPath, err = s.freeLinkPath(ctx, ch.Title)
		if err != nil {
			return nil, err
		}
	}

	// Stored object name is UUID + original extension (markdown by default).
	ext := filepath.Ext(originalFilename)
	if ext == "" {
		ext = ".md"
	}
	key := filepath.ToSlash(filepath.Join("chapters", uuid.New().String()+ext))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	oldKey := ch.StoragePath
	ch.StoragePath = objInfo.Key
	ch.Size = objInfo.Size
	ch.ContentType = objInfo.ContentType
	if ch.Draft {
		ch.Path = linkPath
		ch.Draft = false
	}
	ch.UpdatedAt = time.Now().UTC()

	stored, err := s.repo.Update(ctx, ch)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db update failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db update failed: %w", err)
	}
	if oldKey != "" && oldKey != key {
		// Previous content is unreachable now; best-effort cleanup.
		_ = s.store.Delete(ctx, oldKey)
	}
	return stored, nil
}

func (s *bookService) Content(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	ch, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	if !ch.HasContent() {
		return nil, storage.ObjectInfo{}, ErrNoContent
	}
	return s.store.Get(ctx, ch.StoragePath)
}

func (s *bookService) ContentURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	ch, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !ch.HasContent() {
		return "", ErrNoContent
	}
	return s.store.PresignGet(ctx, ch.StoragePath, expiry)
}

// Delete removes a chapter's stored content first, then its record.
func (s *bookService) Delete(ctx context.Context, id string) error {
	ch, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	// Delete from storage first; if this fails, keep DB row to avoid orphaned storage reference loss
	if ch.HasContent() {
		if err := s.store.Delete(ctx, ch.StoragePath); err != nil {
			return fmt.Errorf("delete storage: %w", err)
		}
	}
	// Delete DB row (repository ignores missing row errors as per contract)
	return s.repo.Delete(ctx, id)
}

// freeLinkPath derives a link target from a title and disambiguates it
// against targets already taken by other chapters: "monitoring.md",
// "monitoring-2.md", "monitoring-3.md", ...
func (s *bookService) freeLinkPath(ctx context.Context, title string) (string, error) {
	base := slugify(title)
	candidate := base + ".md"
	for n := 2; ; n++ {
		taken, err := s.repo.PathExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check link path: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d.md", base, n)
	}
}

// slugify turns a chapter title into a link-friendly file stem, e.g.
// "Writing To the Database" -> "writing-to-the-database".
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
