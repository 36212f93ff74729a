package main

import "github.com/wadjakorntonsri/custom-links/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
