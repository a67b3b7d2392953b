package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-market/backend/internal/auth"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/service"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// memberID resolves the acting member. A user id named in the body must be
// the caller's own.
func memberID(c *fiber.Ctx, claimed string) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return "", apperrors.NewUnauthorized("user required")
	}
	claimed = strings.TrimSpace(claimed)
	if claimed != "" && claimed != principal.User.ID {
		return "", apperrors.NewForbidden("cannot act on behalf of another user")
	}
	return principal.User.ID, nil
}

// adminPrincipal returns the authenticated operator. A body adminid, when
// present, must match it.
func adminPrincipal(c *fiber.Ctx, claimed string) (*domain.Admin, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}
	claimed = strings.TrimSpace(claimed)
	if claimed != "" && claimed != principal.Admin.ID {
		return nil, apperrors.NewForbidden("adminid does not match the authenticated admin")
	}
	return principal.Admin, nil
}

// formUpload opens an optional multipart file. The returned closer is never nil.
func formUpload(c *fiber.Ctx, field string) (*service.Upload, func(), error) {
	uploads, closer, err := formUploads(c, field)
	if err != nil || len(uploads) == 0 {
		return nil, closer, err
	}
	return uploads[0], closer, nil
}

// formUploads opens every file sent under field.
func formUploads(c *fiber.Ctx, field string) ([]*service.Upload, func(), error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, func() {}, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, apperrors.NewValidationError("invalid multipart form", nil)
	}
	var (
		uploads []*service.Upload
		closers []func()
	)
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}
	for _, fh := range form.File[field] {
		up, closer, err := openUpload(fh)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		uploads = append(uploads, up)
		closers = append(closers, closer)
	}
	return uploads, closeAll, nil
}

func openUpload(fh *multipart.FileHeader) (*service.Upload, func(), error) {
	file, err := fh.Open()
	if err != nil {
		return nil, func() {}, apperrors.NewValidationError("unreadable upload", map[string]any{"file": fh.Filename})
	}
	return &service.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        file,
	}, func() { _ = file.Close() }, nil
}
