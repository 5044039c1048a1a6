package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/storage"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// requireCaller returns the authenticated caller or a 401.
func requireCaller(c *fiber.Ctx) (*domain.Caller, error) {
	caller := auth.CallerFromContext(c)
	if caller.Anonymous() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return caller, nil
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// Uploader saves multipart files and returns their public paths.
type Uploader struct {
	store    *storage.Uploads
	maxFiles int
}

// NewUploader wraps the upload store. maxFiles caps multi-file fields.
func NewUploader(store *storage.Uploads, maxFiles int) *Uploader {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	return &Uploader{store: store, maxFiles: maxFiles}
}

// Single saves the file in field. A missing file yields "".
func (u *Uploader) Single(c *fiber.Ctx, field string) (string, error) {
	if u == nil || !isMultipart(c) {
		return "", nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}
	path, err := u.store.SaveFile(fh)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return path, nil
}

// Multiple saves every file in field, up to the configured cap.
func (u *Uploader) Multiple(c *fiber.Ctx, field string) ([]string, error) {
	if u == nil || !isMultipart(c) {
		return nil, apperrors.NewValidationError("multipart upload required", map[string]any{"field": field})
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("no files uploaded", map[string]any{"field": field})
	}
	if len(files) > u.maxFiles {
		return nil, apperrors.NewValidationError("too many files", map[string]any{"field": field, "max": u.maxFiles})
	}
	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := u.store.SaveFile(fh)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
