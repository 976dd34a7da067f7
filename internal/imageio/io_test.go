package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 40), uint8(y * 60), 128, 255})
		}
	}
	return img
}

func TestSaveLoadLossless(t *testing.T) {
	dir := t.TempDir()
	src := testImage()

	tests := []struct {
		ext        string
		wantFormat string
	}{
		{".png", "png"},
		{".bmp", "bmp"},
		{".tiff", "tiff"},
		{".TIF", "tiff"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			path := filepath.Join(dir, "img"+tt.ext)
			if err := Save(path, src, EncodeOptions{}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, format, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if format != tt.wantFormat {
				t.Errorf("format = %q, want %q", format, tt.wantFormat)
			}
			if got.Bounds() != src.Bounds() {
				t.Fatalf("Bounds() = %v, want %v", got.Bounds(), src.Bounds())
			}
			for y := 0; y < 4; y++ {
				for x := 0; x < 6; x++ {
					gr, gg, gb, ga := got.At(x, y).RGBA()
					wr, wg, wb, wa := src.At(x, y).RGBA()
					if gr != wr || gg != wg || gb != wb || ga != wa {
						t.Fatalf("pixel (%d,%d) differs after round trip", x, y)
					}
				}
			}
		})
	}
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	if err := Save(path, testImage(), EncodeOptions{JPEGQuality: 75}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	img, format, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
		t.Errorf("Bounds() = %v, want 6x4", img.Bounds())
	}
}

func TestSaveUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.webp")

	err := Save(path, testImage(), EncodeOptions{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Save() error = %v, want ErrUnsupportedFormat", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Save() created a file for an unsupported format")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("not an image")))
	if err == nil {
		t.Error("Decode() of garbage should fail")
	}
}

func TestIsImagePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"dir/b.JPG", true},
		{"c.jpeg", true},
		{"d.webp", true},
		{"e.tiff", true},
		{"f.txt", false},
		{"noext", false},
		{"g.png.tmp", false},
	}
	for _, tt := range tests {
		if got := IsImagePath(tt.path); got != tt.want {
			t.Errorf("IsImagePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, dir, suffix, want string
	}{
		{"/in/photo.png", "/out", "_blurred", "/out/photo_blurred.png"},
		{"/in/photo.jpeg", "", "_b", "/in/photo_b.jpeg"},
		{"/in/photo.webp", "/out", "_blurred", "/out/photo_blurred.png"},
		{"/in/photo.gif", "/out", "", "/out/photo.png"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.input, tt.dir, tt.suffix); got != filepath.FromSlash(tt.want) {
			t.Errorf("OutputPath(%q, %q, %q) = %q, want %q", tt.input, tt.dir, tt.suffix, got, tt.want)
		}
	}
}
