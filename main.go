package main

import (
	"fmt"
	"os"

	"subtitle-hub/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "subtitle-hub: %v\n", err)
		os.Exit(1)
	}
}
