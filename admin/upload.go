package admin

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/jrsteele09/ems-console/apiclient"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/pkg/errors"
)

// Upload sends a file to the storage endpoint as a multipart form and returns
// the public URL of the stored object.
func (s *Service) Upload(ctx context.Context, filename, folder string, r io.Reader) (string, error) {
	if filename == "" || folder == "" {
		return "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "file name and folder are required")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Upload] create form file")
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", errors.Wrap(err, "[Service.Upload] copy file")
	}
	if err := form.WriteField("folder", folder); err != nil {
		return "", errors.Wrap(err, "[Service.Upload] write folder")
	}
	if err := form.Close(); err != nil {
		return "", errors.Wrap(err, "[Service.Upload] close form")
	}

	var out struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	body := apiclient.RawBody{ContentType: form.FormDataContentType(), Data: buf.Bytes()}
	if _, err := s.call(ctx, "upload", http.MethodPost, RouteUpload, body, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		if out.Error != "" {
			return "", &APIError{Operation: "upload", Message: out.Error}
		}
		return "", apperrors.Wrapf(apperrors.ErrInvalidResponse, "upload returned no url")
	}
	return out.URL, nil
}
