package main

import "github.com/stevib/family-events/internal/cli"

func main() {
	cli.Execute()
}
