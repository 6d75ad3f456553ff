package main

import "github.com/0xdeki/dsdn/cmd/dsdn/internal"

func main() {
	internal.Execute()
}
