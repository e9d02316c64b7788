package main

import (
	"os"

	handoffcmder "github.com/papercomputeco/handoff/cmd/handoff"
)

func main() {
	cmd := handoffcmder.NewHandoffCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
