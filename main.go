package main

import "github.com/agentic-research/flattree/cmd"

func main() {
	cmd.Execute()
}
