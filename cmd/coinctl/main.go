package main

import "github.com/tendant/content-coin/internal/cli"

func main() {
	cli.Execute()
}
