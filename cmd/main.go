package main

import (
	"github.com/dyike/WheelGo/internal/cli"
)

func main() {
	// Execute the root command
	cli.Run()
}
