package traceability

import (
	"fmt"
	"image/color"

	"github.com/skip2/go-qrcode"

	"shrimp-trace/internal/model"
)

// DefaultModulePixels is the edge length of one QR module in the PNG.
const DefaultModulePixels = 10

// Renderer encodes a payload into a scannable image.
type Renderer interface {
	Render(payload string) ([]byte, error)
}

// QREncoder renders payloads as PNG QR codes with error correction level L,
// black modules on white and the standard 4-module quiet zone.
type QREncoder struct {
	ModulePixels int
}

func NewQREncoder() *QREncoder {
	return &QREncoder{ModulePixels: DefaultModulePixels}
}

func (e *QREncoder) Render(payload string) ([]byte, error) {
	q, err := qrcode.New(payload, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	q.DisableBorder = false

	pixels := e.ModulePixels
	if pixels <= 0 {
		pixels = DefaultModulePixels
	}
	// a negative size asks for a fixed number of pixels per module
	png, err := q.PNG(-pixels)
	if err != nil {
		return nil, fmt.Errorf("write png: %w", err)
	}
	return png, nil
}

// Filename is the stored artifact name for a batch; regenerating overwrites it.
func Filename(batchNumber string) string {
	return "qr_" + batchNumber + ".png"
}

// Artifact is a rendered QR code together with the text it encodes.
type Artifact struct {
	Filename string
	Payload  string
	PNG      []byte
}

// Generate builds the payload for p and renders it with r.
func Generate(r Renderer, p *model.Package) (*Artifact, error) {
	payload, err := BuildPayload(p)
	if err != nil {
		return nil, err
	}
	png, err := r.Render(payload)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Filename: Filename(p.BatchNumber),
		Payload:  payload,
		PNG:      png,
	}, nil
}
