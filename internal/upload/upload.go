// Package upload implements the remote object-store client.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	pverrors "github.com/pixieveil/pixieveil/errors"
)

// Outcome is the three-valued upload result.
type Outcome int

const (
	// OutcomeDisabled is returned when no base URL is configured.
	OutcomeDisabled Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeSuccess:
		return "ok"
	default:
		return "fail"
	}
}

// Uploader is the interface the completion tracker depends on. No retry
// logic lives inside an Uploader; retries are implicit via the tracker
// re-running the pipeline on the next tick.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteKey string) (Outcome, error)
}

// HTTPUploader posts the archive as multipart/form-data to
// {baseURL}/upload, authenticating with a bearer token. An empty baseURL
// makes every call return OutcomeDisabled.
type HTTPUploader struct {
	BaseURL   string
	AuthToken string
	Client    *http.Client
}

// New builds an HTTPUploader. An empty baseURL disables uploads.
func New(baseURL, authToken string) *HTTPUploader {
	return &HTTPUploader{
		BaseURL:   baseURL,
		AuthToken: authToken,
		Client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, localPath, remoteKey string) (Outcome, error) {
	if u.BaseURL == "" {
		return OutcomeDisabled, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, 0, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("remote_path", remoteKey); err != nil {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, 0, err)
	}

	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, 0, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, 0, err)
	}
	if err := writer.Close(); err != nil {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, 0, err)
	}

	url := fmt.Sprintf("%s/upload", u.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, 0, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if u.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+u.AuthToken)
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return OutcomeFailure, pverrors.NewUploadError(remoteKey, resp.StatusCode, nil)
	}

	return OutcomeSuccess, nil
}
