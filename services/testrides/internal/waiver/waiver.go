// Package waiver renders the one-page liability waiver with the rider's
// signature embedded.
package waiver

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

var ErrInvalidSignature = errors.New("signature must be a base64 PNG or JPEG data URL")

const legalText = `I acknowledge that riding an electric bicycle involves inherent risks, including ` +
	`collision, falls and mechanical failure. I confirm that I am at least 18 years old, that I ` +
	`will wear the helmet provided, obey all traffic laws and return the bicycle by the agreed ` +
	`time in the condition it was received. I accept responsibility for loss of or damage to ` +
	`the bicycle during the test ride, and I authorize the shop to place a refundable hold on ` +
	`my payment card as security for its return. I release the shop, its owners and staff from ` +
	`liability for injury or loss arising from my use of the bicycle, except where caused by ` +
	`their gross negligence.`

type Document struct {
	ShopLocation  string
	CustomerName  string
	SignatureData string // data:image/png;base64,...
	SignedAt      time.Time
}

// Signature is a decoded signature image.
type Signature struct {
	ImageType string // PNG or JPG, as gofpdf names them
	Data      []byte
}

// DecodeSignature parses a data URL produced by a drawing canvas.
func DecodeSignature(dataURL string) (Signature, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return Signature{}, ErrInvalidSignature
	}

	var imageType string
	switch strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64") {
	case "image/png":
		imageType = "PNG"
	case "image/jpeg", "image/jpg":
		imageType = "JPG"
	default:
		return Signature{}, ErrInvalidSignature
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return Signature{}, ErrInvalidSignature
	}
	return Signature{ImageType: imageType, Data: data}, nil
}

// Render produces the waiver as a PDF. A signature image gofpdf cannot parse
// is reported as ErrInvalidSignature.
func Render(doc Document) ([]byte, error) {
	sig, err := DecodeSignature(doc.SignatureData)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Test Ride Waiver", false)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TEST RIDE RELEASE AND WAIVER")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range headerLines(doc, pdf.UnicodeTranslatorFromDescriptor("")) {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.MultiCell(0, 6, legalText, "", "", false)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Signature:")
	pdf.Ln(8)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render waiver: %w", err)
	}

	opts := gofpdf.ImageOptions{ImageType: sig.ImageType}
	pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(sig.Data))
	pdf.ImageOptions("signature", pdf.GetX(), pdf.GetY(), 70, 0, false, opts, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render waiver: %w", err)
	}
	return buf.Bytes(), nil
}

// headerLines returns the location, rider and date lines passed through tr,
// which maps UTF-8 onto the core font's cp1252 encoding.
func headerLines(doc Document, tr func(string) string) []string {
	var lines []string
	if doc.ShopLocation != "" {
		lines = append(lines, tr("Location: "+doc.ShopLocation))
	}
	lines = append(lines,
		tr("Rider: "+doc.CustomerName),
		"Date: "+doc.SignedAt.Format("January 2, 2006 15:04 MST"),
	)
	return lines
}
