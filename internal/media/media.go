package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"decorbook/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const (
	uploadTimeout = 30 * time.Second
	maxImageBytes = 10 << 20
)

var ErrNotConfigured = errors.New("image hosting is not configured")

// Cloudinary uploads profile photos and service images.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cfg config.MediaConfig) (*Cloudinary, error) {
	if cfg.CloudinaryURL == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, folder: cfg.Folder}, nil
}

// Upload stores the image and returns its https URL.
func (c *Cloudinary) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     fmt.Sprintf("%s_%s", base, uuid.NewString()),
		Folder:       c.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload %s: %s", name, res.Error.Message)
	}
	return res.SecureURL, nil
}

// Fetch downloads a file, e.g. a Telegram photo, so it can be re-uploaded
// without handing the source URL to the image host.
func Fetch(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxImageBytes {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch image: %d bytes exceeds limit", resp.ContentLength)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxImageBytes), resp.Body}, nil
}
