package main

import (
	"github.com/sw33tLie/vendorscope/cmd"
)

func main() {
	cmd.Execute()
}
