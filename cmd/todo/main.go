package main

import (
	"os"

	"todaytasks/api/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
