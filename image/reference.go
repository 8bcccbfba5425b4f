package image

import "github.com/input-output-hk/catalyst-forge-release/registry"

// LatestTag is the moving tag pushed alongside every version.
const LatestTag = "latest"

// Reference names a built image and where it is pushed.
type Reference struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	Latest   string `json:"latest" yaml:"latest"`
	Registry string `json:"registry" yaml:"registry"`
}

// NewReference creates a reference tagged with version and latest.
func NewReference(registryHost, name, version string) Reference {
	return Reference{Name: name, Version: version, Latest: LatestTag, Registry: registryHost}
}

// Tags returns the version and latest tags.
func (r Reference) Tags() []string {
	return []string{r.Version, r.Latest}
}

// LocalTags returns the local image names, version first.
func (r Reference) LocalTags() []string {
	return []string{r.Name + ":" + r.Version, r.Name + ":" + r.Latest}
}

// Targets returns the registry push targets, version first.
func (r Reference) Targets() []string {
	return []string{
		r.Registry + "/" + r.Name + ":" + r.Version,
		r.Registry + "/" + r.Name + ":" + r.Latest,
	}
}

// Validate checks both targets are well-formed image references.
func (r Reference) Validate() error {
	for _, target := range r.Targets() {
		if _, err := registry.ParseReference(target); err != nil {
			return err
		}
	}
	return nil
}
