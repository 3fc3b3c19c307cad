package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"lumina/internal/model"
)

// =============================================================================
// MOCKS
// =============================================================================

type mockObjectStore struct {
	putFn func(ctx context.Context, key string, body []byte, contentType, cacheControl string) error

	keys   []string
	bodies [][]byte
}

func (m *mockObjectStore) PutObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	m.keys = append(m.keys, key)
	m.bodies = append(m.bodies, body)
	if m.putFn != nil {
		return m.putFn(ctx, key, body, contentType, cacheControl)
	}
	return nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// =============================================================================
// UPLOAD AVATAR TESTS
// =============================================================================

func TestUploadAvatar_Success(t *testing.T) {
	// ARRANGE
	store := &mockObjectStore{}
	svc := NewMediaService(store, "https://cdn.example.com/", &seqRandomizer{}, nil)
	data := testPNG(t, 400, 300)

	// ACT
	res, err := svc.UploadAvatar(context.Background(), "dev-1", bytes.NewReader(data), int64(len(data)), "image/png")

	// ASSERT
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Key != "avatars/dev-1/id-1.jpg" {
		t.Errorf("unexpected key %q", res.Key)
	}
	if res.URL != "https://cdn.example.com/avatars/dev-1/id-1.jpg" {
		t.Errorf("unexpected url %q", res.URL)
	}

	img, _, err := image.Decode(bytes.NewReader(store.bodies[0]))
	if err != nil {
		t.Fatalf("stored body is not an image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != model.AvatarWidth || b.Dy() != model.AvatarHeight {
		t.Errorf("expected %dx%d, got %dx%d", model.AvatarWidth, model.AvatarHeight, b.Dx(), b.Dy())
	}
}

func TestUploadAvatar_SniffsContentType(t *testing.T) {
	// ARRANGE
	svc := NewMediaService(&mockObjectStore{}, "https://cdn", &seqRandomizer{}, nil)
	data := testPNG(t, 10, 10)

	// ACT: no content type sent
	_, err := svc.UploadAvatar(context.Background(), "d", bytes.NewReader(data), int64(len(data)), "")

	// ASSERT
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUploadAvatar_Rejections(t *testing.T) {
	// ARRANGE
	svc := NewMediaService(&mockObjectStore{}, "https://cdn", &seqRandomizer{}, nil)

	// ACT + ASSERT: one rejection per check

	_, err := svc.UploadAvatar(context.Background(), "d", strings.NewReader("x"), model.MaxAvatarSizeBytes+1, "image/png")
	if !errors.Is(err, model.ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}

	_, err = svc.UploadAvatar(context.Background(), "d", strings.NewReader("hello"), 5, "text/plain")
	if !errors.Is(err, model.ErrInvalidImageType) {
		t.Errorf("expected ErrInvalidImageType, got %v", err)
	}

	_, err = svc.UploadAvatar(context.Background(), "d", strings.NewReader("not really a png"), 16, "image/png")
	if !errors.Is(err, model.ErrInvalidImageType) {
		t.Errorf("expected undecodable image to be rejected, got %v", err)
	}
}

func TestUploadAvatar_NotConfigured(t *testing.T) {
	// ARRANGE
	svc := NewMediaService(nil, "", nil, nil)

	// ACT
	_, err := svc.UploadAvatar(context.Background(), "d", strings.NewReader(""), 0, "image/png")

	// ASSERT
	if svc.Enabled() {
		t.Error("expected uploads disabled")
	}
	if !errors.Is(err, model.ErrMediaNotConfigured) {
		t.Errorf("expected ErrMediaNotConfigured, got %v", err)
	}
}

func TestUploadAvatar_StoreFailure(t *testing.T) {
	// ARRANGE
	store := &mockObjectStore{putFn: func(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
		return errors.New("r2 down")
	}}
	svc := NewMediaService(store, "https://cdn", &seqRandomizer{}, nil)
	data := testPNG(t, 10, 10)

	// ACT
	_, err := svc.UploadAvatar(context.Background(), "d", bytes.NewReader(data), int64(len(data)), "image/png")

	// ASSERT
	if err == nil {
		t.Error("expected error")
	}
}
