// Command stereoprep inspects and previews stereo RGB+NIR training data:
// it validates manifests, reports what a manifest expands into, and renders
// produced samples to PNG.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
