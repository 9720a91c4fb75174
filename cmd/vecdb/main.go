package main

import "github.com/constantino-dev/vecdb/internal/cli"

func main() {
	cli.Execute()
}
