package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/b4nter/banter-backend/internal/config"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

var (
	ErrImageTooLarge = errors.New("image exceeds upload size limit")
	ErrNotAnImage    = errors.New("file is not a supported image")
)

const avatarSize = 256

// AvatarService normalizes uploaded avatars: decode, shrink to a square
// thumbnail, re-encode as PNG. Re-encoding strips whatever was embedded
// in the original file.
type AvatarService struct {
	cfg      *config.Config
	profiles *ProfileService
}

func NewAvatarService(cfg *config.Config, profiles *ProfileService) *AvatarService {
	return &AvatarService{cfg: cfg, profiles: profiles}
}

// Store processes the uploaded image and attaches it to the user. Returns
// the public URL path of the stored avatar.
func (s *AvatarService) Store(userID uuid.UUID, data []byte) (string, error) {
	if int64(len(data)) > s.cfg.UploadMaxBytes {
		return "", ErrImageTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotAnImage
	}

	thumb := resize.Thumbnail(avatarSize, avatarSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", fmt.Errorf("encode avatar: %w", err)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.New().String() + ".png"
	path := filepath.Join(s.cfg.UploadDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}

	url := "/uploads/" + name
	if err := s.profiles.SetAvatarURL(userID, url); err != nil {
		os.Remove(path)
		return "", err
	}
	return url, nil
}
