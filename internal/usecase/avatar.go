package usecase

import (
	"encoding/base64"
	"fmt"
	"strings"

	"provisiond/internal/domain"
)

const MaxAvatarBytes = 2 << 20

// DecodeImage accepts a data URL or bare base64 payload.
func DecodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 || !strings.Contains(encoded[:comma], ";base64") {
			return nil, fmt.Errorf("%w: image must be a base64 data URL", domain.ErrInvalidInput)
		}
		if !strings.HasPrefix(encoded, "data:image/") {
			return nil, fmt.Errorf("%w: image must be an image type", domain.ErrInvalidInput)
		}
		encoded = encoded[comma+1:]
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxAvatarBytes+3 {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, MaxAvatarBytes)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidInput)
	}
	if len(raw) > MaxAvatarBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, MaxAvatarBytes)
	}
	return raw, nil
}
