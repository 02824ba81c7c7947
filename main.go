package main

import "github.com/ayato/linegpt-go/cmd"

func main() {
	cmd.Execute()
}
