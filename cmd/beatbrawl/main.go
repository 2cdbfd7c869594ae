package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/zurustar/beatbrawl/pkg/app"
)

//go:embed soundfonts
var embeddedSoundFonts embed.FS

func main() {
	application := app.New(embeddedSoundFonts)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
