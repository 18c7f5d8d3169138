// Package cloudinary mirrors uploaded homework to Cloudinary so teachers can
// open the original scan from a shareable URL.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether every credential is present.
func (c Config) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Mirror uploads homework copies and returns their secure URL.
type Mirror struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Cloudinary mirror.
func New(cfg Config, logger zerolog.Logger) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Mirror{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "homework_mirror").Logger(),
		now:    time.Now,
	}, nil
}

// Upload sends the file to Cloudinary. PDFs go up as raw assets so the
// original document is served untouched.
func (m *Mirror) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       m.folder,
		PublicID:     publicID(name, m.now()),
		ResourceType: resourceType(name),
		Tags:         []string{"homework"},
	}

	result, err := m.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload homework: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected homework: %s", result.Error.Message)
	}

	m.logger.Info().Str("public_id", result.PublicID).Msg("homework mirrored to cloudinary")
	return result.SecureURL, nil
}

func resourceType(name string) string {
	if strings.EqualFold(path.Ext(name), ".pdf") {
		return "raw"
	}
	return "auto"
}

func publicID(name string, at time.Time) string {
	base := slug.Make(strings.TrimSuffix(path.Base(name), path.Ext(name)))
	if base == "" {
		base = "homework"
	}
	return fmt.Sprintf("%s-%d", base, at.Unix())
}
