package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
	"barterhub/internal/domain/service"
	"barterhub/internal/infrastructure/storage"
	"barterhub/pkg/errors"
	"barterhub/pkg/logger"
	"barterhub/pkg/utils"
)

const sniffLen = 3072

// StorageSelector picks the backend for new objects and resolves the
// backend an existing object lives on.
type StorageSelector interface {
	Select(sel storage.Selection) (service.StorageBackend, error)
	Get(name string) (service.StorageBackend, error)
}

type MediaUseCase struct {
	mediaRepo   repository.MediaRepository
	listingRepo repository.ListingRepository
	storage     StorageSelector
	maxBytes    int64
	now         func() time.Time
}

func NewMediaUseCase(mediaRepo repository.MediaRepository, listingRepo repository.ListingRepository, storage StorageSelector, maxBytes int64) *MediaUseCase {
	return &MediaUseCase{
		mediaRepo:   mediaRepo,
		listingRepo: listingRepo,
		storage:     storage,
		maxBytes:    maxBytes,
		now:         time.Now,
	}
}

type UploadMediaInput struct {
	FileName  string
	Size      int64
	Region    string
	ListingID *string
	Body      io.Reader
}

// Upload sniffs the content type, picks a backend and stores the file.
func (uc *MediaUseCase) Upload(ctx context.Context, ownerID string, input UploadMediaInput) (*entity.Media, error) {
	if uc.maxBytes > 0 && input.Size > uc.maxBytes {
		return nil, errors.BadRequest(fmt.Sprintf("File exceeds the %d byte limit", uc.maxBytes), nil)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.BadRequest("Failed to read upload", err)
	}
	if n == 0 {
		return nil, errors.BadRequest("File is empty", nil)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	contentType, _, _ := strings.Cut(detected.String(), ";")
	if !allowedMediaType(contentType) {
		return nil, errors.BadRequest("Unsupported file type: "+contentType, nil)
	}

	region := strings.ToUpper(strings.TrimSpace(input.Region))
	if input.ListingID != nil && *input.ListingID != "" {
		listing, err := uc.listingRepo.GetByID(ctx, *input.ListingID)
		if err != nil {
			return nil, err
		}
		if listing.SellerID != ownerID {
			return nil, errors.Forbidden("You can only attach media to your own listings", nil)
		}
		if region == "" {
			region = listing.Region
		}
	} else {
		input.ListingID = nil
	}

	backend, err := uc.storage.Select(storage.Selection{MimeType: contentType, Region: region, Size: input.Size})
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("media/%s/%s%s", ownerID, uuid.NewString(), detected.Extension())
	body := io.MultiReader(bytes.NewReader(head), input.Body)
	if uc.maxBytes > 0 {
		body = io.LimitReader(body, uc.maxBytes+1)
	}

	info, err := backend.Upload(ctx, key, body, service.UploadOptions{ContentType: contentType, Public: true})
	if err != nil {
		return nil, err
	}
	if uc.maxBytes > 0 && info.Size > uc.maxBytes {
		if err := backend.Delete(ctx, key); err != nil {
			logger.Warn("Failed to remove oversized upload %s: %v", key, err)
		}
		return nil, errors.BadRequest(fmt.Sprintf("File exceeds the %d byte limit", uc.maxBytes), nil)
	}

	now := uc.now().UTC()
	media := &entity.Media{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		ListingID:        input.ListingID,
		Backend:          backend.Name(),
		StorageKey:       key,
		URL:              backend.URL(key),
		FileName:         filepath.Base(input.FileName),
		MimeType:         contentType,
		Size:             info.Size,
		Region:           region,
		ModerationStatus: entity.ModerationPending,
		ProcessingStatus: entity.ProcessingCompleted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.mediaRepo.Create(ctx, media); err != nil {
		if derr := backend.Delete(ctx, key); derr != nil {
			logger.Warn("Failed to remove orphaned upload %s: %v", key, derr)
		}
		return nil, err
	}

	logger.Info("Media %s stored on %s (%d bytes)", media.ID, media.Backend, media.Size)
	return media, nil
}

func (uc *MediaUseCase) Get(ctx context.Context, id string) (*entity.Media, error) {
	return uc.mediaRepo.GetByID(ctx, id)
}

// Open streams the stored object. The caller closes the reader.
func (uc *MediaUseCase) Open(ctx context.Context, id string) (*entity.Media, io.ReadCloser, error) {
	media, err := uc.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if media.StorageKey == "" {
		return nil, nil, errors.NotFound("Stored object", nil)
	}
	backend, err := uc.storage.Get(media.Backend)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := backend.Download(ctx, media.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return media, rc, nil
}

// Delete removes the object and its record. Only the owner or an admin may
// delete.
func (uc *MediaUseCase) Delete(ctx context.Context, id string, actor *entity.User) error {
	media, err := uc.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if media.OwnerID != actor.ID && !actor.IsAdmin() {
		return errors.Forbidden("You can only delete your own media", nil)
	}

	if media.StorageKey != "" {
		backend, err := uc.storage.Get(media.Backend)
		if err != nil {
			return err
		}
		if err := backend.Delete(ctx, media.StorageKey); err != nil && !errors.Is(err, errors.CodeNotFound) {
			return err
		}
	}
	return uc.mediaRepo.Delete(ctx, media.ID)
}

func (uc *MediaUseCase) ListMine(ctx context.Context, ownerID string, page, limit int) ([]*entity.Media, int64, error) {
	p := utils.NewPagination(page, limit)
	return uc.mediaRepo.ListByOwner(ctx, ownerID, p.PageSize, p.Offset)
}

func allowedMediaType(contentType string) bool {
	switch {
	case strings.HasPrefix(contentType, "image/"),
		strings.HasPrefix(contentType, "video/"),
		strings.HasPrefix(contentType, "audio/"),
		contentType == "application/pdf":
		return true
	}
	return false
}
