// Command repl is an interactive CLI for a bitkv store.
//
// Usage:
//
//	repl [-f] <path-prefix>
//
// Commands:
//
//	put <key> <value>   Insert or overwrite an entry
//	get <key>           Retrieve an entry by key
//	del <key>           Delete an entry
//	verify <key>        Recompute and check a record's checksum
//	keys                List live keys in order
//	items               List (key, value) pairs in order
//	sync                Flush writes and roll the active segment if dirty
//	prune               Compact, rewriting only live records
//	fingerprint         Print a digest of the whole mapping
//	orphans             List segments referenced by nothing live
//	help                Show this help
//	exit / quit / q     Exit
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/bitkv-go/bitkv/codec"
	"github.com/bitkv-go/bitkv/core"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fsync := pflag.BoolP("fsync", "f", false, "fsync every write before it returns")
	pflag.Parse()

	if pflag.NArg() < 1 {
		pflag.Usage()
		return fmt.Errorf("missing path prefix")
	}

	opts := []core.Option[string, string]{}
	if *fsync {
		opts = append(opts, core.WithFsyncOnWrite[string, string](true))
	}

	e, err := core.Open[string, string](pflag.Arg(0), codec.String{}, opts...)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer e.Close()

	r := &repl{engine: e}
	return r.run()
}

type repl struct {
	engine *core.Engine[string, string]
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bitkv_history")
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("bitkv REPL. Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt("bitkv> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nbye")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "put":
			r.cmdPut(args)
		case "get":
			r.cmdGet(args)
		case "del", "delete":
			r.cmdDelete(args)
		case "verify":
			r.cmdVerify(args)
		case "keys":
			r.cmdKeys()
		case "items":
			r.cmdItems()
		case "sync":
			r.cmdSync()
		case "prune":
			r.cmdPrune()
		case "fingerprint":
			r.cmdFingerprint()
		case "orphans":
			r.cmdOrphans()
		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f)
		f.Close()
	}
}

func (r *repl) printHelp() {
	fmt.Println(`commands:
  put <key> <value>   insert or overwrite an entry
  get <key>           retrieve an entry by key
  del <key>           delete an entry
  verify <key>        recompute and check a record's checksum
  keys                list live keys in order
  items               list (key, value) pairs in order
  sync                flush writes, roll the active segment if dirty
  prune               compact, rewriting only live records
  fingerprint         print a digest of the whole mapping
  orphans             list segments referenced by nothing live
  exit / quit / q     exit`)
}

func (r *repl) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <key> <value>")
		return
	}
	value := strings.Join(args[1:], " ")
	if _, err := r.engine.Put(args[0], value); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (r *repl) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get <key>")
		return
	}
	v, err := r.engine.Get(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(v)
}

func (r *repl) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: del <key>")
		return
	}
	if err := r.engine.Delete(args[0]); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (r *repl) cmdVerify(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: verify <key>")
		return
	}
	if err := r.engine.Verify(args[0]); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func (r *repl) cmdKeys() {
	for _, k := range r.engine.Keys() {
		fmt.Println(k)
	}
}

func (r *repl) cmdItems() {
	items, err := r.engine.Items()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, it := range items {
		fmt.Printf("%s = %s\n", it.Key, it.Value)
	}
}

func (r *repl) cmdSync() {
	if err := r.engine.Sync(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (r *repl) cmdPrune() {
	if err := r.engine.Prune(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (r *repl) cmdFingerprint() {
	fp, err := r.engine.Fingerprint()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%016x\n", fp)
}

func (r *repl) cmdOrphans() {
	orphans := r.engine.OrphanSegments()
	if len(orphans) == 0 {
		fmt.Println("none")
		return
	}
	fmt.Println(orphans)
}
