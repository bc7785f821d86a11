package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// UploadMedia stores a user file and returns its media id.
// contentType is forwarded as a hint, e.g. "pdf". A 400 reply is a rejection.
func (c *Client) UploadMedia(ctx context.Context, userID int64, filename string, file io.Reader, contentType string) (*Media, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	path := "/user/" + itoa(userID) + "/media"
	endpoint := c.baseURL + path
	if contentType != "" {
		endpoint += "?" + url.Values{"content_type": {contentType}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var m Media
	if err := c.send(req, path, http.StatusBadRequest, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
