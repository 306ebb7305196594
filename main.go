package main

import (
	"github.com/lybxkl/simq/cli"
)

func main() {
	cli.Start()
}
