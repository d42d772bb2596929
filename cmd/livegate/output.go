package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/MrCodeEU/livegate/pkg/liveness"
)

var (
	passColor    = color.New(color.FgGreen, color.Bold)
	blockColor   = color.New(color.FgRed, color.Bold)
	partialColor = color.New(color.FgYellow)
	waitColor    = color.New(color.FgCyan)
	dimColor     = color.New(color.Faint)
)

// outcomeLabel renders the outcome column of a verdict line.
func outcomeLabel(res liveness.Result) string {
	switch {
	case res.Outcome == liveness.OutcomePassed:
		return passColor.Sprint("PASS ")
	case res.Outcome == liveness.OutcomeBlocked && res.Transient:
		return partialColor.Sprint("RETRY")
	case res.Outcome == liveness.OutcomeBlocked:
		return blockColor.Sprint("BLOCK")
	}
	return waitColor.Sprint("WAIT ")
}

// signalFlags renders the four detector signals, e.g. "B H - V".
func signalFlags(res liveness.Result) string {
	flag := func(on bool, c string) string {
		if on {
			return c
		}
		return "-"
	}
	return fmt.Sprintf("%s %s %s %s",
		flag(res.BlinkDetected, "B"),
		flag(res.HeadMovementDetected, "H"),
		flag(res.TextureAnalysisPassed, "T"),
		flag(res.FrameVariationPassed, "V"))
}

func printVerdict(w io.Writer, seq int, res liveness.Result) {
	fmt.Fprintf(w, "%5d  %s  %.2f  %s  %s\n",
		seq, outcomeLabel(res), res.Confidence,
		dimColor.Sprint(signalFlags(res)), res.Reason())
}
