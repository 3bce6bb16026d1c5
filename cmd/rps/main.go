package main

import (
	"github.com/yolosopher/rps-live/internal/cli"
)

func main() {
	cli.Execute()
}
