package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// createTestImage creates a simple test image with a gradient pattern.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func writeTestPNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadImage(t *testing.T) {
	p := NewProcessor()
	path := writeTestPNG(t, createTestImage(32, 24))

	img, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("unexpected dimensions %dx%d", b.Dx(), b.Dy())
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	p := NewProcessor()
	if _, err := p.LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadImageFromURL(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(40, 30), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	p := NewProcessor()
	img, err := p.LoadImageFromURL(srv.URL + "/test.jpg")
	if err != nil {
		t.Fatalf("LoadImageFromURL failed: %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("unexpected width %d", img.Bounds().Dx())
	}
}

func TestLoadImageFromURLRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	p := NewProcessor()
	if _, err := p.LoadImageFromURL(srv.URL); err == nil {
		t.Error("expected error for non-image content type")
	}
}

func TestLoadImageFromURLRejectsBadScheme(t *testing.T) {
	p := NewProcessor()
	if _, err := p.LoadImageFromURL("ftp://example.com/img.jpg"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestLoadImageSmart(t *testing.T) {
	p := NewProcessor()
	path := writeTestPNG(t, createTestImage(16, 16))

	if _, err := p.LoadImageSmart(path); err != nil {
		t.Errorf("LoadImageSmart with file path failed: %v", err)
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()

	b64, err := p.PrepareImageForModel(createTestImage(64, 48), "jpg", 0, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected dimensions %v", img.Bounds())
	}
}

func TestPrepareImageForModelDownscales(t *testing.T) {
	p := NewProcessor()

	b64, err := p.PrepareImageForModel(createTestImage(200, 100), "jpg", 50, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	data, _ := base64.StdEncoding.DecodeString(b64)
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 50 {
		t.Errorf("expected long side downscaled to 50, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 25 {
		t.Errorf("expected aspect ratio preserved, got height %d", img.Bounds().Dy())
	}
}

func TestPrepareImageForModelPNG(t *testing.T) {
	p := NewProcessor()

	b64, err := p.PrepareImageForModel(createTestImage(20, 20), "png", 0, 0)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	data, _ := base64.StdEncoding.DecodeString(b64)
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
}

func TestPrepareImageForModelSmallImageUntouched(t *testing.T) {
	p := NewProcessor()
	src := createTestImage(30, 20)

	b64, err := p.PrepareImageForModel(src, "jpg", 100, 85)
	if err != nil {
		t.Fatal(err)
	}

	data, _ := base64.StdEncoding.DecodeString(b64)
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != src.Bounds() {
		t.Errorf("small image should not be resized, got %v", img.Bounds())
	}
}

func TestLoadImageViaImagingSave(t *testing.T) {
	// Round-trip through the imaging library's own writer, like real
	// callers producing intermediate files.
	path := filepath.Join(t.TempDir(), "saved.jpg")
	if err := imaging.Save(createTestImage(24, 24), path); err != nil {
		t.Fatal(err)
	}

	p := NewProcessor()
	if _, err := p.LoadImage(path); err != nil {
		t.Errorf("LoadImage of imaging.Save output failed: %v", err)
	}
}
