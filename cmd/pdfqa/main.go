package main

import "github.com/pdfqa-dev/pdfqa/internal/cli"

func main() {
	cli.Execute()
}
