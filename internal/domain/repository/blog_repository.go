package repository

import (
	"context"

	"github.com/quillside/quillside-api/internal/domain/entity"
)

// BlogRepository defines the store operations for blog posts.
type BlogRepository interface {
	Create(ctx context.Context, b *entity.Blog) error
	GetByID(ctx context.Context, id string) (*entity.Blog, error)
	List(ctx context.Context) ([]entity.Blog, error)
	ListByAuthor(ctx context.Context, authorID string) ([]entity.Blog, error)
	// Delete removes the blog if it exists and belongs to authorID.
	Delete(ctx context.Context, id, authorID string) error
}
