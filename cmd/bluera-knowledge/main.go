package main

import "github.com/chris-bluera/bluera-knowledge/internal/cli"

func main() {
	cli.Execute()
}
