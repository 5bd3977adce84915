package postgres

import (
	"context"
	"database/sql"

	"bookapi/internal/model"
	"bookapi/internal/repository"
)

// ChapterPostgres is a PostgreSQL implementation of repository.ChapterRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ChapterPostgres struct {
	db *sql.DB
}

// NewChapterPostgres creates a new ChapterPostgres repository.
func NewChapterPostgres(db *sql.DB) *ChapterPostgres {
	return &ChapterPostgres{db: db}
}

var _ repository.ChapterRepository = (*ChapterPostgres)(nil)

const chapterColumns = `id, part, part_order, position, level, title, path, draft, storage_path, size, content_type, created_at, updated_at`

func scanChapter(row interface{ Scan(...any) error }) (*model.Chapter, error) {
	var c model.Chapter
	if err := row.Scan(
		&c.ID,
		&c.Part,
		&c.PartOrder,
		&c.Position,
		&c.Level,
		&c.Title,
		&c.Path,
		&c.Draft,
		&c.StoragePath,
		&c.Size,
		&c.ContentType,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new chapter row and returns the stored record.
func (r *ChapterPostgres) Create(ctx context.Context, ch *model.Chapter) (*model.Chapter, error) {
	const q = `
		INSERT INTO chapters (id, part, part_order, position, level, title, path, draft, storage_path, size, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + chapterColumns
	row := r.db.QueryRowContext(ctx, q,
		ch.ID,
		ch.Part,
		ch.PartOrder,
		ch.Position,
		ch.Level,
		ch.Title,
		ch.Path,
		ch.Draft,
		ch.StoragePath,
		ch.Size,
		ch.ContentType,
		ch.CreatedAt,
		ch.UpdatedAt,
	)
	return scanChapter(row)
}

// FindByID fetches a single chapter by its ID.
func (r *ChapterPostgres) FindByID(ctx context.Context, id string) (*model.Chapter, error) {
	const q = `
		SELECT ` + chapterColumns + `
		FROM chapters
		WHERE id = $1
	`
	return scanChapter(r.db.QueryRowContext(ctx, q, id))
}

// List returns chapters in book order using LIMIT/OFFSET pagination and a total count.
func (r *ChapterPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Chapter], error) {
	const qCount = `SELECT COUNT(*) FROM chapters`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + chapterColumns + `
		FROM chapters
		ORDER BY part_order, position
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectChapters(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Chapter]{
		Items: items,
		Total: total,
	}, nil
}

// ListAll returns every chapter ordered by part order and position.
func (r *ChapterPostgres) ListAll(ctx context.Context) ([]model.Chapter, error) {
	const q = `
		SELECT ` + chapterColumns + `
		FROM chapters
		ORDER BY part_order, position
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChapters(rows)
}

func collectChapters(rows *sql.Rows) ([]model.Chapter, error) {
	items := make([]model.Chapter, 0)
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites a chapter row by ID and returns the stored record.
func (r *ChapterPostgres) Update(ctx context.Context, ch *model.Chapter) (*model.Chapter, error) {
	const q = `
		UPDATE chapters
		SET part = $2, part_order = $3, position = $4, level = $5, title = $6, path = $7,
		    draft = $8, storage_path = $9, size = $10, content_type = $11, updated_at = $12
		WHERE id = $1
		RETURNING ` + chapterColumns
	row := r.db.QueryRowContext(ctx, q,
		ch.ID,
		ch.Part,
		ch.PartOrder,
		ch.Position,
		ch.Level,
		ch.Title,
		ch.Path,
		ch.Draft,
		ch.StoragePath,
		ch.Size,
		ch.ContentType,
		ch.UpdatedAt,
	)
	return scanChapter(row)
}

// Delete removes a chapter by ID. It does not return an error if the row does not exist.
func (r *ChapterPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM chapters WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// MaxPosition returns the highest position within a part, or -1 when the part is empty.
func (r *ChapterPostgres) MaxPosition(ctx context.Context, part string) (int, error) {
	const q = `SELECT COALESCE(MAX(position), -1) FROM chapters WHERE part = $1`
	var max int
	if err := r.db.QueryRowContext(ctx, q, part).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// PartOrder returns the book-level order of a part. An existing part keeps
// the order of its rows; a new part lands after the last one.
func (r *ChapterPostgres) PartOrder(ctx context.Context, part string) (int, error) {
	const q = `
		SELECT COALESCE(
			(SELECT MIN(part_order) FROM chapters WHERE part = $1),
			(SELECT COALESCE(MAX(part_order), -1) + 1 FROM chapters)
		)
	`
	var order int
	if err := r.db.QueryRowContext(ctx, q, part).Scan(&order); err != nil {
		return 0, err
	}
	return order, nil
}

// PathExists reports whether any chapter row already uses the given link path.
func (r *ChapterPostgres) PathExists(ctx context.Context, path string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM chapters WHERE path = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, path).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ReplaceAll swaps the whole chapter set inside a single transaction.
func (r *ChapterPostgres) ReplaceAll(ctx context.Context, chapters []model.Chapter) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chapters`); err != nil {
		return err
	}

	const q = `
		INSERT INTO chapters (id, part, part_order, position, level, title, path, draft, storage_path, size, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for _, ch := range chapters {
		if _, err := tx.ExecContext(ctx, q,
			ch.ID,
			ch.Part,
			ch.PartOrder,
			ch.Position,
			ch.Level,
			ch.Title,
			ch.Path,
			ch.Draft,
			ch.StoragePath,
			ch.Size,
			ch.ContentType,
			ch.CreatedAt,
			ch.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
