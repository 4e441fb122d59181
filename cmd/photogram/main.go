package main

import (
	"os"

	"github.com/Iron-Ham/photogram/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
