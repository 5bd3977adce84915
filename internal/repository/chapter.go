package repository

import (
	"context"

	"bookapi/internal/model"
)

// ChapterRepository defines data access for book chapters using SQL queries only.
// No business logic here — strictly persistence operations.
type ChapterRepository interface {
	// Create inserts a new chapter record.
	// The caller should provide required fields (e.g., ID, CreatedAt) according to the database schema defaults.
	// Returns the stored chapter (may include values set by the DB).
	Create(ctx context.Context, ch *model.Chapter) (*model.Chapter, error)

	// FindByID returns a chapter by its ID.
	FindByID(ctx context.Context, id string) (*model.Chapter, error)

	// List returns a paginated list of chapters in book order and the total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Chapter], error)

	// ListAll returns every chapter in book order (part order, then
	// position). Used for summary export, where pagination would break
	// ordering guarantees.
	ListAll(ctx context.Context) ([]model.Chapter, error)

	// Update rewrites a chapter row by ID and returns the stored record.
	Update(ctx context.Context, ch *model.Chapter) (*model.Chapter, error)

	// Delete removes a chapter by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error

	// MaxPosition returns the highest position within a part, or -1 when
	// the part has no chapters yet.
	MaxPosition(ctx context.Context, part string) (int, error)

	// PartOrder returns the book-level order of a part: the order of its
	// existing rows, or the next free order when the part is new.
	PartOrder(ctx context.Context, part string) (int, error)

	// PathExists reports whether any chapter already uses the given link path.
	PathExists(ctx context.Context, path string) (bool, error)

	// ReplaceAll swaps the whole chapter set in one transaction: all rows
	// are deleted and the given chapters inserted. Either everything is
	// applied or nothing is.
	ReplaceAll(ctx context.Context, chapters []model.Chapter) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
