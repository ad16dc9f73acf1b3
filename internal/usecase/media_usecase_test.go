package usecase

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormrepo "barterhub/internal/adapter/repository"
	"barterhub/internal/domain/entity"
	"barterhub/internal/infrastructure/database"
	"barterhub/internal/infrastructure/storage"
	"barterhub/pkg/errors"
)

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type mediaFixture struct {
	uc       *MediaUseCase
	listings *entity.Listing
}

func newMediaFixture(t *testing.T, maxBytes int64) *mediaFixture {
	t.Helper()
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)

	local, err := storage.NewLocalBackend(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	factory := storage.NewFactory(storage.BackendLocal, storage.Rules{})
	factory.Register(local)

	listingRepo := gormrepo.NewGormListingRepository(db)
	listing := &entity.Listing{ID: "l1", SellerID: "seller", Title: "PS5", Status: entity.ListingStatusActive, Region: "LAGOS"}
	require.NoError(t, listingRepo.Create(context.Background(), listing))

	return &mediaFixture{
		uc:       NewMediaUseCase(gormrepo.NewGormMediaRepository(db), listingRepo, factory, maxBytes),
		listings: listing,
	}
}

func TestMediaUseCase_UploadOpenDelete(t *testing.T) {
	f := newMediaFixture(t, 1<<20)
	ctx := context.Background()

	media, err := f.uc.Upload(ctx, "seller", UploadMediaInput{
		FileName:  "../photo.png",
		Size:      int64(len(pngBytes)),
		ListingID: &f.listings.ID,
		Body:      bytes.NewReader(pngBytes),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", media.MimeType)
	assert.Equal(t, storage.BackendLocal, media.Backend)
	assert.Equal(t, "photo.png", media.FileName)
	assert.Equal(t, "LAGOS", media.Region)
	assert.Equal(t, int64(len(pngBytes)), media.Size)
	assert.Contains(t, media.URL, "http://localhost:8080/uploads/media/seller/")

	got, rc, err := f.uc.Open(ctx, media.ID)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, pngBytes, body)
	assert.Equal(t, media.ID, got.ID)

	items, total, err := f.uc.ListMine(ctx, "seller", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	err = f.uc.Delete(ctx, media.ID, &entity.User{ID: "someone-else", Role: entity.RoleUser})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	require.NoError(t, f.uc.Delete(ctx, media.ID, &entity.User{ID: "admin", Role: entity.RoleAdmin}))
	_, err = f.uc.Get(ctx, media.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMediaUseCase_UploadRejections(t *testing.T) {
	f := newMediaFixture(t, 32)
	ctx := context.Background()

	_, err := f.uc.Upload(ctx, "seller", UploadMediaInput{Size: 64, Body: bytes.NewReader(pngBytes)})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.uc.Upload(ctx, "seller", UploadMediaInput{Body: bytes.NewReader(pngBytes)})
	assert.True(t, errors.Is(err, errors.CodeBadRequest), "size is enforced on the stream too")

	_, err = f.uc.Upload(ctx, "seller", UploadMediaInput{Body: bytes.NewReader([]byte("#!/bin/sh\necho hi\n"))})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.uc.Upload(ctx, "seller", UploadMediaInput{Body: bytes.NewReader(nil)})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.uc.Upload(ctx, "buyer", UploadMediaInput{ListingID: &f.listings.ID, Body: bytes.NewReader(pngBytes[:16])})
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}
