package main

import "github.com/darmiel/permitree/cmd"

func main() {
	cmd.Execute()
}
