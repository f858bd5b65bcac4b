package pairing

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"strings"

	"github.com/nfnt/resize"
)

// DecodeImage turns the transport form of an image (a data URL such as
// "data:image/jpeg;base64,..." or a bare base64 string) into raw bytes.
func DecodeImage(encoded string) ([]byte, error) {
	data := strings.TrimSpace(encoded)
	if i := strings.IndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	if data == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		// Some encoders drop the padding.
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	return raw, nil
}

// ImageHash calculates the SHA256 hash of the image data.
func ImageHash(imageData []byte) string {
	hash := sha256.Sum256(imageData)
	return hex.EncodeToString(hash[:])
}

// MaxImagePixels bounds the declared dimensions of an uploaded image.
const MaxImagePixels = 40_000_000

// PrepareImage shrinks images wider than maxWidth and reports the format to
// declare upstream. Data that cannot be decoded as an image is returned
// untouched and declared as jpeg. Images declaring more than MaxImagePixels
// are rejected with ErrInvalidImage before any pixel is decoded.
func PrepareImage(imageData []byte, maxWidth uint) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return imageData, "jpeg", nil
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxImagePixels)
	}
	if maxWidth == 0 || uint(cfg.Width) <= maxWidth {
		return imageData, format, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return imageData, format, nil
	}

	img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 85}); err != nil {
		return imageData, format, nil
	}
	return out.Bytes(), "jpeg", nil
}
