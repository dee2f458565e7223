package main

import "github.com/devicelab-dev/gesture-runner/pkg/cli"

func main() {
	cli.Execute()
}
