package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rendis/yelptap/internal/config"
	"github.com/rendis/yelptap/internal/engine/session"
)

func runTranslate(args []string) error {
	var webURL string

	fs := flag.NewFlagSet("translate", flag.ExitOnError)
	fs.StringVar(&webURL, "url", "", "Web search URL or its query string (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: yelptap translate -url <web search url>\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  yelptap translate -url 'https://www.yelp.com/search?find_desc=Pizza&find_loc=Boston%%2C+MA'\n")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if webURL == "" && fs.NArg() > 0 {
		webURL = fs.Arg(0)
	}
	if webURL == "" {
		return fmt.Errorf("-url is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	tr, err := session.NewTranslator(cfg, time.Now)
	if err != nil {
		return err
	}
	out, err := tr.Translate(webURL)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
