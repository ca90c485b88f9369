// Command example is a minimal embedding driver for bitkv.
//
// usage:
//
//	example get <key>
//	example set <key> <value>
package main

import (
	"fmt"
	"os"

	"github.com/bitkv-go/bitkv/codec"
	"github.com/bitkv-go/bitkv/core"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  example get <key>\n")
	fmt.Fprintf(os.Stderr, "  example set <key> <value>\n")
	os.Exit(1)
}

func main() {
	const dbPath = "example.db"

	if len(os.Args) < 3 {
		usage()
	}

	action := os.Args[1]
	key := os.Args[2]

	switch action {
	case "get":
		if len(os.Args) != 3 {
			usage()
		}

		e, err := core.Open[string, string](dbPath, codec.String{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer e.Close()

		val, err := e.Get(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to get the key: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(val)

	case "set":
		if len(os.Args) != 4 {
			usage()
		}
		val := os.Args[3]

		e, err := core.Open[string, string](dbPath, codec.String{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer e.Close()

		if _, err := e.Put(key, val); err != nil {
			fmt.Fprintf(os.Stderr, "failed to set the key: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", action)
		usage()
	}
}
