// Package main is the entry point for the pitchmetrics CLI tool, which
// ingests soccer event data and computes player/team metrics.
package main

import "github.com/pable/go-pitch-metrics/cmd"

func main() {
	cmd.Execute()
}
