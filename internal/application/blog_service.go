package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quillside/quillside-api/internal/domain/entity"
	"github.com/quillside/quillside-api/internal/domain/repository"
	"github.com/quillside/quillside-api/pkg/helpers"
)

var (
	ErrBlogNotFound = errors.New("blog does not exist")
	ErrEmptyTitle   = errors.New("title is required")
)

// BlogService covers blog CRUD plus search indexing.
type BlogService struct {
	Repo      repository.BlogRepository
	Logger    *logrus.Logger
	GCS       *storage.Client
	GCSBucket string
	ES        *elasticsearch.Client
	ESIndex   string
}

func NewBlogService(repo repository.BlogRepository, logger *logrus.Logger, gcs *storage.Client, gcsBucket string, es *elasticsearch.Client, esIndex string) *BlogService {
	return &BlogService{Repo: repo, Logger: logger, GCS: gcs, GCSBucket: gcsBucket, ES: es, ESIndex: esIndex}
}

type CreateBlogInput struct {
	Title       string
	Description string
	Tags        []string
	Content     string
	ImageURL    string
}

func (s *BlogService) Create(ctx context.Context, authorID string, in CreateBlogInput) (*entity.Blog, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	b := &entity.Blog{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Tags:        in.Tags,
		Content:     in.Content,
		ImageURL:    in.ImageURL,
		AuthorID:    authorID,
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, err
	}
	// indexing is best effort; the row is the source of truth
	_ = s.indexBlog(ctx, b)
	return b, nil
}

func (s *BlogService) Get(ctx context.Context, id string) (*entity.Blog, error) {
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *BlogService) List(ctx context.Context) ([]entity.Blog, error) {
	return s.Repo.List(ctx)
}

func (s *BlogService) ListByAuthor(ctx context.Context, authorID string) ([]entity.Blog, error) {
	return s.Repo.ListByAuthor(ctx, authorID)
}

// Delete removes a blog owned by authorID along with its search document.
func (s *BlogService) Delete(ctx context.Context, id, authorID string) error {
	if err := s.Repo.Delete(ctx, id, authorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBlogNotFound
		}
		return err
	}
	if s.ES != nil && s.ESIndex != "" {
		req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: id}
		c, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if res, err := req.Do(c, s.ES); err == nil {
			_ = res.Body.Close()
		}
	}
	return nil
}

// UploadImage streams a blog image to GCS and returns its public URL.
func (s *BlogService) UploadImage(ctx context.Context, authorID string, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("blogs", authorID, uuid.NewString()+ext))
	return helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
}

func (s *BlogService) indexBlog(ctx context.Context, b *entity.Blog) error {
	if s.ES == nil || s.ESIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":          b.ID,
		"title":       b.Title,
		"description": b.Description,
		"tags":        b.Tags,
		"author_id":   b.AuthorID,
		"created_at":  b.CreatedAt.Format(time.RFC3339Nano),
	}
	body, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: b.ID, Body: strings.NewReader(string(body)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("blog_id", b.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("blog_id", b.ID).Warn("es index response error")
	}
	return nil
}

// Search performs a multi_match query on title, description and tags.
func (s *BlogService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "description", "tags"},
			},
		},
		"size": size,
	}
	body, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
