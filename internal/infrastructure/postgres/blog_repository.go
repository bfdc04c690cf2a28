package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillside/quillside-api/internal/domain/entity"
	"github.com/quillside/quillside-api/internal/domain/repository"
)

const blogColumns = `id, title, description, tags, image_url, content, author_id, created_at, updated_at`

type BlogRepository struct {
	pool *pgxpool.Pool
}

func NewBlogRepository(pool *pgxpool.Pool) *BlogRepository {
	return &BlogRepository{pool: pool}
}

func scanBlog(row pgx.Row) (*entity.Blog, error) {
	b := &entity.Blog{}
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Tags, &b.ImageURL,
		&b.Content, &b.AuthorID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BlogRepository) Create(ctx context.Context, b *entity.Blog) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO blogs (title, description, tags, image_url, content, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, b.Title, b.Description, b.Tags, b.ImageURL, b.Content, b.AuthorID)
	return row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BlogRepository) GetByID(ctx context.Context, id string) (*entity.Blog, error) {
	return scanBlog(r.pool.QueryRow(ctx, `
		SELECT `+blogColumns+` FROM blogs WHERE id = $1
	`, id))
}

func (r *BlogRepository) List(ctx context.Context) ([]entity.Blog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blogColumns+` FROM blogs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBlogs(rows)
}

func (r *BlogRepository) ListByAuthor(ctx context.Context, authorID string) ([]entity.Blog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blogColumns+` FROM blogs WHERE author_id = $1 ORDER BY created_at DESC
	`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBlogs(rows)
}

func collectBlogs(rows pgx.Rows) ([]entity.Blog, error) {
	out := []entity.Blog{}
	for rows.Next() {
		b := entity.Blog{}
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Tags, &b.ImageURL,
			&b.Content, &b.AuthorID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes the blog row. The author_id predicate keeps owners from
// deleting each other's posts; the FK from blogs to users means no dangling
// author references are possible.
func (r *BlogRepository) Delete(ctx context.Context, id, authorID string) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM blogs WHERE id = $1 AND author_id = $2
	`, id, authorID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.BlogRepository = (*BlogRepository)(nil)
