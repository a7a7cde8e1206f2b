package main

import "github.com/felixgeelhaar/librarian/cmd/librarian/cli"

func main() {
	cli.Execute()
}
