package main

import "github.com/neicnordic/LocalEGA-tester/internal/cli"

func main() {
	cli.Execute()
}
