package jobs

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Limits bounds what a single submission may carry. Sizes are in bytes and
// apply to the decoded image payloads, not the base64 wire form.
type Limits struct {
	MinImages     int
	MaxImages     int
	MaxImageBytes int64
	MaxTotalBytes int64
}

// ValidateImages checks image count and decoded sizes in order: count first,
// then each image against the per-image limit, then the aggregate limit.
// The first violation wins. Size violations are marked PayloadTooLarge.
func ValidateImages(images []string, limits Limits) error {
	if len(images) < limits.MinImages {
		return &ValidationError{
			Reason: fmt.Sprintf("at least %d images required", limits.MinImages),
		}
	}
	if len(images) > limits.MaxImages {
		return &ValidationError{
			Reason: fmt.Sprintf("maximum %d images allowed", limits.MaxImages),
		}
	}

	var total int64
	for i, img := range images {
		size := decodedSize(img)
		if size > limits.MaxImageBytes {
			return &ValidationError{
				Reason: fmt.Sprintf("image %d too large (%dMB), max %dMB",
					i+1, size>>20, limits.MaxImageBytes>>20),
				PayloadTooLarge: true,
			}
		}
		total += size
	}
	if total > limits.MaxTotalBytes {
		return &ValidationError{
			Reason: fmt.Sprintf("total payload too large (%dMB), max %dMB",
				total>>20, limits.MaxTotalBytes>>20),
			PayloadTooLarge: true,
		}
	}

	return nil
}

// decodedSize reports the decoded byte length of a base64 image payload,
// tolerating an optional data-URL header.
func decodedSize(img string) int64 {
	if strings.HasPrefix(img, "data:") {
		if idx := strings.IndexByte(img, ','); idx >= 0 {
			img = img[idx+1:]
		}
	}
	return int64(base64.StdEncoding.DecodedLen(len(img)))
}
