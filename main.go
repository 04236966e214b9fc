package main

import "heatsim/cmd"

func main() {
	cmd.Execute()
}
