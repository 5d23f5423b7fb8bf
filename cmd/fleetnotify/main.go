package main

import (
	"fmt"
	"os"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/cmd/fleetnotify/cmds"
)

func main() {
	if err := cmds.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
