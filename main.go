package main

import "github.com/sajjad-MoBe/kvdiff/cmd"

func main() {
	cmd.Execute()
}
