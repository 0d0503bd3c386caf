package main

import (
	"github.com/spf13/cobra"

	"github.com/stevecastle/stereoprep/appconfig"
	"github.com/stevecastle/stereoprep/manifest"
	"github.com/stevecastle/stereoprep/sample"
)

// expandFlags override the configured expansion options. Only flags given
// on the command line take effect.
type expandFlags struct {
	noRGB          bool
	noFilter       bool
	rendered       bool
	renderedNIR    bool
	noised         bool
	noiseTarget    string
	shiftFilter    bool
	verticalScale  bool
	disparityRight bool
	colorGT        bool
	maxSamples     int
}

func addExpandFlags(cmd *cobra.Command, f *expandFlags) {
	flags := cmd.Flags()
	flags.BoolVar(&f.noRGB, "no-rgb", false, "Skip the base descriptor of each record")
	flags.BoolVar(&f.noFilter, "no-filter", false, "Skip records marked as filtered")
	flags.BoolVar(&f.rendered, "rendered", false, "Add alternate-exposure rendered variants")
	flags.BoolVar(&f.renderedNIR, "rendered-nir", false, "Pair rendered color with rendered NIR exposures")
	flags.BoolVar(&f.noised, "noised", false, "Add noised variants")
	flags.StringVar(&f.noiseTarget, "noise-target", "", "Modality the noise applies to (color or nir)")
	flags.BoolVar(&f.shiftFilter, "shift-filter", false, "Shift views horizontally")
	flags.BoolVar(&f.verticalScale, "vertical-scale", false, "Stretch a random horizontal band to full height")
	flags.BoolVar(&f.disparityRight, "disparity-right", false, "Also return the right-view disparity")
	flags.BoolVar(&f.colorGT, "color-gt", false, "Append the clean color pair as ground truth")
	flags.IntVar(&f.maxSamples, "max-samples", 0, "Cap the number of descriptors per manifest (0 means no cap)")
}

func (f *expandFlags) options(cmd *cobra.Command, e appconfig.Expand) (manifest.Options, error) {
	flags := cmd.Flags()
	set := func(name string, dst *bool, v bool) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("no-rgb", &e.NoRGB, f.noRGB)
	set("no-filter", &e.NoFilter, f.noFilter)
	set("rendered", &e.Rendered, f.rendered)
	set("rendered-nir", &e.RenderedNIR, f.renderedNIR)
	set("noised", &e.Noised, f.noised)
	set("shift-filter", &e.ShiftFilter, f.shiftFilter)
	set("vertical-scale", &e.VerticalScale, f.verticalScale)
	set("disparity-right", &e.DisparityRight, f.disparityRight)
	set("color-gt", &e.ColorGT, f.colorGT)
	if flags.Changed("noise-target") {
		e.NoiseTarget = f.noiseTarget
	}
	if flags.Changed("max-samples") {
		e.MaxSamples = f.maxSamples
	}

	target, err := sample.ParseNoiseTarget(e.NoiseTarget)
	if err != nil {
		return manifest.Options{}, err
	}
	return manifest.Options{
		NoRGB:          e.NoRGB,
		NoFilter:       e.NoFilter,
		Rendered:       e.Rendered,
		RenderedNIR:    e.RenderedNIR,
		Noised:         e.Noised,
		NoiseTarget:    target,
		ShiftFilter:    e.ShiftFilter,
		VerticalScale:  e.VerticalScale,
		DisparityRight: e.DisparityRight,
		ColorGT:        e.ColorGT,
		MaxSamples:     e.MaxSamples,
	}, nil
}
