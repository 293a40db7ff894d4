package audit

import (
	"sync"

	"github.com/goliatone/go-masker"
)

var defaultMaskerOnce sync.Once

// DefaultMasker returns the shared masker with credential-like fields
// registered.
func DefaultMasker() *masker.Masker {
	defaultMaskerOnce.Do(func() {
		if masker.Default == nil {
			return
		}
		registerDefaultMaskFields(masker.Default)
	})
	return masker.Default
}

// SanitizeMetadata masks credential-like values before an entry is stored.
// When masking fails the payload is dropped rather than stored unmasked.
func SanitizeMetadata(mask *masker.Masker, metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	if mask == nil {
		mask = DefaultMasker()
	}
	if mask == nil {
		return map[string]any{}
	}
	masked, err := mask.Mask(cloneMetadata(metadata))
	if err != nil {
		return map[string]any{}
	}
	switch masked := masked.(type) {
	case map[string]any:
		return masked
	default:
		return map[string]any{}
	}
}

func registerDefaultMaskFields(mask *masker.Masker) {
	if mask == nil {
		return
	}
	for _, field := range []string{"password", "Password", "token", "Token", "secret", "Secret", "authorization", "Authorization"} {
		mask.RegisterMaskField(field, "filled4")
	}
}
