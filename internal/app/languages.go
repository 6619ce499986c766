package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/language"
)

func runLanguages(args []string) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	code := fs.String("code", "", "Print the combined name for one ISO 639-1 code")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	catalog := language.Default()
	if *code != "" {
		name := catalog.Lookup(*code)
		if name == "" {
			fmt.Fprintf(os.Stderr, "unknown language code: %s\n", *code)
			return 1
		}
		fmt.Fprintln(os.Stdout, name)
		return 0
	}

	writeLanguages(os.Stdout, catalog)
	return 0
}

func writeLanguages(w io.Writer, catalog *language.Catalog) {
	for _, lang := range catalog.List() {
		fmt.Fprintf(w, "%-3s %s\n", lang.Code, lang.CombinedName())
	}
}
