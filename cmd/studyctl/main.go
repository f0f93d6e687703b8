package main

import "github.com/mcoot/studyroom/internal/cli"

func main() {
	cli.Execute()
}
