package main

import (
	"github.com/oneconcern/lfslink/cmd/lfslink/cmd"
)

func main() {
	cmd.Execute()
}
