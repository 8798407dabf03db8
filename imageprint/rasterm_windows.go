//go:build windows
// +build windows

package imageprint

import (
	"flag"
	"fmt"
	"image"
)

var (
	forceITerm = flag.Bool("force_iterm", false, "value to force iterm detection to take (implementation variant: no rasterm)")
)

func isTermItermWez() bool {
	return *forceITerm
}

func PrintRasTerm(i image.Image) {
	fmt.Printf("rasterm not supported on windows\n")
}
