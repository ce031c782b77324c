package main

import "github.com/moltbot/rampart/internal/cli"

func main() {
	cli.Execute()
}
