package main

import (
	"github.com/input-output-hk/catalyst-forge-release/image"
)

// RenderCmd prints the container build descriptor for the configured
// application.
type RenderCmd struct {
	Params

	Artifact string `help:"Artifact path relative to the build context." default:"target/app.jar"`
}

// Run executes the render command.
func (c *RenderCmd) Run(e *env) error {
	cfg, err := resolve(e.globals.Config, c.Params, true)
	if err != nil {
		return err
	}

	out, err := image.Render(image.DescriptorFromConfig(cfg, c.Artifact))
	if err != nil {
		return err
	}
	_, err = e.stdout.Write(out)
	return err
}
