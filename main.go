package main

import "github.com/sitforge/dlpsit/cmd"

func main() {
	cmd.Execute()
}
