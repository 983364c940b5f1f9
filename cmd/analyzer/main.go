package main

import (
	"os"

	"github.com/1cbyc/view0x-sub000/internal/app"
)

func main() {
	if err := app.BuildRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
