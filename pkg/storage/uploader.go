// Package storage uploads content blobs referenced by signed authorization
// messages and computes their digests.
package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"relay-core/pkg/crypto_util"
	"relay-core/pkg/errno"
)

// Uploader stores a content blob and returns its public URI.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// ContentDigest computes the hex BLAKE3 digest bound into authorization
// messages. The verifier compares it against the declared digest field.
func ContentDigest(data []byte) string {
	return crypto_util.CalculateBlake3(data)
}

type uploadResponse struct {
	URI   string `json:"uri"`
	Error string `json:"error,omitempty"`
}

// TurboUploader pushes blobs to the external content store over HTTP.
type TurboUploader struct {
	client *resty.Client
	url    string
}

func NewTurboUploader(url, token string, timeout time.Duration) *TurboUploader {
	client := resty.New().
		SetTimeout(timeout).
		SetAuthToken(token)
	return &TurboUploader{client: client, url: url}
}

func (u *TurboUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	var out uploadResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", name, bytes.NewReader(data)).
		SetResult(&out).
		SetError(&out).
		Post(u.url)
	if err != nil {
		return "", errno.InternalServerError.WithDetail(err.Error())
	}
	if resp.IsError() || out.Error != "" {
		detail := out.Error
		if detail == "" {
			detail = resp.Status()
		}
		return "", errno.InternalServerError.WithDetail("content upload failed: " + detail)
	}
	return out.URI, nil
}
