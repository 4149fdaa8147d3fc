package gallery

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

// Thumbnails are cropped to width:height = 4:5.
const (
	thumbRatioW  = 4
	thumbRatioH  = 5
	thumbQuality = 80
)

// MakeThumbnail decodes src, centre-crops it to 4:5 and resizes it to width
// pixels wide with Lanczos3. The result is JPEG encoded.
func MakeThumbnail(src io.Reader, width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("thumbnail width must be positive, got %d", width)
	}
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	cropped := centerCrop(img)
	height := width * thumbRatioH / thumbRatioW
	thumb := resize.Resize(uint(width), uint(height), cropped, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// centerCrop returns the largest centred 4:5 region of img.
func centerCrop(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var rect image.Rectangle
	if w*thumbRatioH > h*thumbRatioW {
		newW := h * thumbRatioW / thumbRatioH
		left := b.Min.X + (w-newW)/2
		rect = image.Rect(left, b.Min.Y, left+newW, b.Max.Y)
	} else {
		newH := w * thumbRatioH / thumbRatioW
		top := b.Min.Y + (h-newH)/2
		rect = image.Rect(b.Min.X, top, b.Max.X, top+newH)
	}
	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}
