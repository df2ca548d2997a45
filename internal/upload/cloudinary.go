package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// Cloudinary uploads through an unsigned upload preset.
type Cloudinary struct {
	Client       *http.Client
	Endpoint     string // e.g. https://api.cloudinary.com/v1_1
	CloudName    string
	UploadPreset string
	Folder       string
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload posts the image as multipart form data and returns secure_url.
func (c *Cloudinary) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.WriteField("upload_preset", c.UploadPreset); err != nil {
		return "", err
	}
	if c.Folder != "" {
		if err := w.WriteField("folder", c.Folder); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	url := strings.TrimRight(c.Endpoint, "/") + "/" + c.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	var out cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload failed: decode response: %w", err)
	}
	if out.SecureURL == "" {
		return "", errors.New("upload failed: response has no secure_url")
	}
	return out.SecureURL, nil
}
