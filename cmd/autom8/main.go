package main

import "github.com/louisboilard/autom8/internal/cli"

func main() {
	cli.Execute()
}
