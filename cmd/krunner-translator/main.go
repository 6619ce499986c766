package main

import (
	"os"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
