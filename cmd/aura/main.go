package main

import "github.com/aura-ai/aura/cmd/aura/cli"

func main() {
	cli.Execute()
}
