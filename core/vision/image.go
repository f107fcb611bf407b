package vision

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrEmptyImage = errors.New("empty image")

// Image is a decoded image together with the form it arrived in.
type Image struct {
	Data        []byte
	ContentType string
	// IsDataURL reports whether the image was sent as a data URL rather than
	// bare base64.
	IsDataURL bool
}

// DecodeImage accepts either a data URL ("data:image/png;base64,...") or bare
// base64 and sniffs the content type from the decoded bytes.
func DecodeImage(encoded string) (Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Image{}, ErrEmptyImage
	}

	img := Image{}
	if strings.HasPrefix(encoded, "data:") {
		_, payload, ok := strings.Cut(encoded, ",")
		if !ok {
			return Image{}, fmt.Errorf("malformed data url")
		}
		img.IsDataURL = true
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	img.Data = data
	img.ContentType = http.DetectContentType(data)
	if !strings.HasPrefix(img.ContentType, "image/") {
		return Image{}, fmt.Errorf("unsupported image type %q", img.ContentType)
	}

	return img, nil
}

// DataURL encodes data as a base64 data URL of the given content type.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (i Image) DataURL() string {
	return DataURL(i.ContentType, i.Data)
}
