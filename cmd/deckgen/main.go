package main

import "github.com/kirillkom/deckgen/internal/cli"

func main() {
	cli.Execute()
}
