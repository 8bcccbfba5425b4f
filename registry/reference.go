package registry

import (
	"oras.land/oras-go/v2/registry"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// Reference is a parsed image reference.
type Reference = registry.Reference

// ParseReference parses and validates an image reference such as
// localhost:5000/app:42.
func ParseReference(ref string) (Reference, error) {
	parsed, err := registry.ParseReference(ref)
	if err != nil {
		return Reference{}, errors.Wrapf(err, errors.CodeInvalidInput, "invalid image reference %q", ref)
	}
	if parsed.Reference == "" {
		return Reference{}, errors.Newf(errors.CodeInvalidInput, "image reference %q has no tag", ref)
	}
	return parsed, nil
}
