package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quillside/quillside-api/internal/application"
	"github.com/quillside/quillside-api/internal/interface/middleware"
	"github.com/quillside/quillside-api/pkg/response"
	"github.com/quillside/quillside-api/pkg/validation"
)

type BlogHandler struct {
	Svc    *application.BlogService
	Logger *logrus.Logger
}

func NewBlogHandler(svc *application.BlogService, logger *logrus.Logger) *BlogHandler {
	return &BlogHandler{Svc: svc, Logger: logger}
}

func (h *BlogHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrBlogNotFound),
		errors.Is(err, application.ErrEmptyTitle):
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("path", c.FullPath()).Error("blog operation failed")
		}
		response.Error(c, http.StatusInternalServerError, "something went wrong", nil)
	}
}

func (h *BlogHandler) List(c *gin.Context) {
	blogs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, blogs, "All blogs fetched successfully")
}

func (h *BlogHandler) Get(c *gin.Context) {
	b, err := h.Svc.Get(c.Request.Context(), c.Param("blogId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b, "Blog fetched successfully")
}

type createBlogRequest struct {
	Title       string   `form:"title" json:"title" binding:"required"`
	Description string   `form:"description" json:"description"`
	Tags        []string `form:"tags" json:"tags"`
	Content     string   `form:"content" json:"content"`
}

func (h *BlogHandler) Create(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)

	var req createBlogRequest
	multipart := strings.HasPrefix(c.ContentType(), "multipart/")
	if multipart {
		if err := c.ShouldBind(&req); err != nil {
			ferr := validation.First(err)
			response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}

	in := application.CreateBlogInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Content:     req.Content,
	}

	if multipart {
		if fh, err := c.FormFile("image"); err == nil {
			f, err := fh.Open()
			if err != nil {
				h.fail(c, err)
				return
			}
			defer func() { _ = f.Close() }()
			url, err := h.Svc.UploadImage(c.Request.Context(), uid, f, fh.Filename, fh.Header.Get("Content-Type"))
			if err != nil {
				h.fail(c, err)
				return
			}
			in.ImageURL = url
		}
	}

	b, err := h.Svc.Create(c.Request.Context(), uid, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b, "Blog created successfully")
}

func (h *BlogHandler) Delete(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Delete(c.Request.Context(), c.Param("blogId"), uid); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "Blog deleted successfully")
}

func (h *BlogHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error(c, http.StatusBadRequest, "query is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "Search results")
}
