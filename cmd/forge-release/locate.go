package main

import (
	"fmt"

	"github.com/input-output-hk/catalyst-forge-release/artifact"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
)

// LocateCmd prints the archive the publish stage would pick from a build
// output directory.
type LocateCmd struct {
	Params

	Dir string `arg:"" optional:"" help:"Build output directory." default:"." type:"path"`
	All bool   `help:"List every candidate in selection order."`
}

// Run executes the locate command.
func (c *LocateCmd) Run(e *env) error {
	cfg, err := resolve(e.globals.Config, c.Params, true)
	if err != nil {
		return err
	}

	dir, err := fs.GetAbs(c.Dir)
	if err != nil {
		return err
	}

	locator := artifact.NewLocator(billy.NewOSFS("/"),
		artifact.WithSuffix(cfg.ArtifactSuffix),
		artifact.WithSecondaryMarkers(cfg.SecondaryMarkers...))

	if !c.All {
		ref, err := locator.Locate(dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, ref.Path)
		return nil
	}

	refs, err := locator.Candidates(dir)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		fmt.Fprintln(e.stdout, ref.Path)
	}
	return nil
}
