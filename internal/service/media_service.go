package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed image MIME types.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload folders.
const (
	FolderQuestions = "questions"
	FolderProofs    = "payment-proofs"
)

// ObjectStore is the remote bucket uploads land in.
type ObjectStore interface {
	Put(path string, r io.Reader, contentType string) (string, error)
}

// MediaService handles file upload operations.
type MediaService struct {
	cfg   *config.Config
	store ObjectStore
	log   zerolog.Logger
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config, store ObjectStore, log zerolog.Logger) *MediaService {
	return &MediaService{
		cfg:   cfg,
		store: store,
		log:   log.With().Str("component", "media_service").Logger(),
	}
}

// SaveUpload validates an image and uploads it under folder with a UUID
// filename. Returns the public URL.
func (s *MediaService) SaveUpload(folder string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	// Trust the bytes, not the declared header.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	contentType := http.DetectContentType(head[:n])

	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(), ", "))
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	objectPath := path.Join(folder, uuid.New().String()+ext)
	url, err := s.store.Put(objectPath, file, contentType)
	if err != nil {
		return "", err
	}

	s.log.Debug().Str("path", objectPath).Int64("bytes", header.Size).Msg("Uploaded media")
	return url, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
