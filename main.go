package main

import "nwpfetch/cmd"

func main() {
	cmd.Execute()
}
