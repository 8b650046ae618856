package main

import (
	"github.com/redkyn/canvas-client/internal/cli"
)

func main() {
	cli.Execute()
}
