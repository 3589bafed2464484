package main

import (
	"os"

	"github.com/guilhermegouw/chatkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
