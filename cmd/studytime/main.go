package main

import "github.com/studytime-tracker/studytime/internal/cli"

func main() {
	cli.Execute()
}
