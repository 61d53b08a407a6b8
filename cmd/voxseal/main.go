package main

import "github.com/jmcleod/voxseal/cmd/voxseal/cmd"

func main() {
	cmd.Execute()
}
