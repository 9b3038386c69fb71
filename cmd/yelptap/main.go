package main

import (
	"fmt"
	"os"

	"github.com/rendis/yelptap/internal/tui"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		var run func([]string) error
		switch os.Args[1] {
		case "translate":
			run = runTranslate
		case "search":
			run = runSearch
		case "reviews":
			run = runReviews
		case "export":
			run = runExport
		case "version":
			fmt.Println("yelptap " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
			printUsage()
			os.Exit(2)
		}
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// No subcommand → launch TUI
	if err := tui.Run(version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `yelptap - Yelp search relevance scanner

Usage:
  yelptap                  Launch interactive TUI
  yelptap translate [flags] Print the API query for a web search URL
  yelptap search [flags]   Count keyword-variant appearances per business
  yelptap reviews [flags]  Count keyword review hits per business
  yelptap export [flags]   Export a session .db to CSV or GeoJSON
  yelptap version          Show version

Settings come from the environment or a .env file (YELP_API_KEY, ...).
Run 'yelptap <command> --help' for flags.
`)
}
