package config

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SchemaVersion is the parameter file schema version. Files declare the
// version they were written for in their top-level version field.
const SchemaVersion = "0.1.0"

// IsCompatible reports whether a parameter file written for fileVersion can
// be read by this release. It uses a caret constraint, so for 0.x versions
// only patch releases are compatible.
func IsCompatible(fileVersion string) (bool, error) {
	constraint, err := semver.NewConstraint("^" + SchemaVersion)
	if err != nil {
		return false, fmt.Errorf("invalid schema version: %w", err)
	}

	v, err := semver.NewVersion(fileVersion)
	if err != nil {
		return false, fmt.Errorf("invalid file version %q: %w", fileVersion, err)
	}

	return constraint.Check(v), nil
}
