package tenant

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// keyRoot is the shared prefix under which all tenant documents live.
	keyRoot = "documents/"

	// SidecarSuffix is appended to a content key to derive the key of its
	// metadata sidecar. Key construction and catalog pairing both use this
	// constant; the literal is never duplicated elsewhere.
	SidecarSuffix = ".metadata.json"
)

// ErrInvalidFilename is returned for filenames that could escape the
// tenant prefix or collide with a sidecar key.
var ErrInvalidFilename = errors.New("invalid filename")

// ContentKey returns the storage key for a tenant's document:
// documents/{tenant}/{filename}.
//
// The filename must be a bare name. Path separators and the sidecar
// suffix are rejected rather than coerced, so a crafted filename can
// never escape the tenant prefix or shadow another object's sidecar.
func ContentKey(t Identity, filename string) (string, error) {
	if t.IsZero() {
		return "", ErrInvalidTenant
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	return keyRoot + t.id + "/" + filename, nil
}

// ListPrefix returns the key prefix covering every object owned by t:
// documents/{tenant}/. The trailing separator after the canonical tenant
// segment guarantees that prefixes of distinct tenants never overlap.
func ListPrefix(t Identity) string {
	return keyRoot + t.id + "/"
}

// SidecarKey derives the metadata sidecar key for a content key.
func SidecarKey(contentKey string) string {
	return contentKey + SidecarSuffix
}

// IsSidecarKey reports whether key names a metadata sidecar.
func IsSidecarKey(key string) bool {
	return strings.HasSuffix(key, SidecarSuffix)
}

// ContentKeyOf strips the sidecar suffix, returning the content key the
// sidecar belongs to. Returns the key unchanged if it is not a sidecar.
func ContentKeyOf(sidecarKey string) string {
	return strings.TrimSuffix(sidecarKey, SidecarSuffix)
}

func validateFilename(filename string) error {
	switch {
	case filename == "":
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	case strings.ContainsAny(filename, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, filename)
	case strings.HasSuffix(filename, SidecarSuffix):
		return fmt.Errorf("%w: %q ends with the sidecar suffix", ErrInvalidFilename, filename)
	}
	return nil
}
