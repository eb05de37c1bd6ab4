package waiver

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/phpdave11/gofpdf"
)

func signaturePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 5; x < 35; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRender_ProducesPDF(t *testing.T) {
	out, err := Render(Document{
		ShopLocation:  "Main St Shop",
		CustomerName:  "Alex Rider",
		SignatureData: signaturePNG(t),
		SignedAt:      time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected PDF output, got prefix %q", out[:8])
	}
}

func TestDecodeSignature(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
		want    string
	}{
		{"png", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x")), false, "PNG"},
		{"jpeg", "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("x")), false, "JPG"},
		{"empty", "", true, ""},
		{"not data url", "https://example.com/sig.png", true, ""},
		{"svg", "data:image/svg+xml;base64,PHN2Zy8+", true, ""},
		{"bad base64", "data:image/png;base64,!!!", true, ""},
		{"empty payload", "data:image/png;base64,", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := DecodeSignature(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSignature) {
					t.Fatalf("expected ErrInvalidSignature, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sig.ImageType != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, sig.ImageType)
			}
		})
	}
}

func TestRender_RejectsBadSignature(t *testing.T) {
	if _, err := Render(Document{CustomerName: "x", SignatureData: "nope"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRender_UnreadableImageIsInvalidSignature(t *testing.T) {
	_, err := Render(Document{CustomerName: "Alex Rider", SignatureData: "data:image/png;base64,AAAA"})
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestRender_AccentedName(t *testing.T) {
	doc := Document{
		ShopLocation:  "Café Cycles",
		CustomerName:  "José Núñez",
		SignatureData: signaturePNG(t),
		SignedAt:      time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
	}
	if _, err := Render(doc); err != nil {
		t.Fatalf("Render: %v", err)
	}

	tr := gofpdf.New("P", "mm", "Letter", "").UnicodeTranslatorFromDescriptor("")
	lines := headerLines(doc, tr)
	if lines[0] != "Location: Caf\xe9 Cycles" {
		t.Fatalf("location not translated to cp1252: %q", lines[0])
	}
	if lines[1] != "Rider: Jos\xe9 N\xfa\xf1ez" {
		t.Fatalf("rider not translated to cp1252: %q", lines[1])
	}
}
