package main

import (
	"fmt"
	"io"

	"animux/internal/encoding"
	"animux/internal/logging"
)

// progressPrinter renders sampled progress lines to the command's output.
func progressPrinter(out io.Writer) encoding.ProgressFunc {
	sampler := logging.NewProgressSampler(5)
	return func(event encoding.ProgressEvent) {
		if !sampler.ShouldLog(event.Percent, event.Stage) {
			return
		}
		if event.ETASeconds > 0 {
			fmt.Fprintf(out, "%s: %5.1f%% (eta %s)\n",
				event.Stage, event.Percent, encoding.FormatSeconds(event.ETASeconds))
			return
		}
		fmt.Fprintf(out, "%s: %5.1f%%\n", event.Stage, event.Percent)
	}
}
