package main

import (
	"github.com/playpi/playpi/cmd"
)

func main() {
	cmd.Execute()
}
