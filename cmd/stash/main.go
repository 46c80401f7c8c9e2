// stash is a simple interactive CLI for exploring a stashtable.
//
// Usage:
//
//	stash [flags]
//
// Flags:
//
//	-c, --capacity   Table capacity (default 1024)
//
// Commands (in REPL):
//
//	put <key> <value>    Insert or update an entry
//	add <key> <value>    Insert only; refuses existing keys
//	get <key>            Read an entry under its slot lock
//	find <key>           Lock-free lookup, prints the slot ref
//	del <key>            Delete an entry
//	keys                 List live (key, slot) pairs
//	dump                 Print the whole table
//	len                  Count live entries
//	cap                  Show capacity
//	bulk <count>         Insert N random entries
//	bench <count>        Benchmark put+get round trips
//	clear                Remove everything
//	help                 Show this help
//	exit / quit / q      Exit
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/olliNiinivaara/stashtable/pkg/stashtable"
)

func main() {
	flags := flag.NewFlagSet("stash", flag.ExitOnError)
	capacity := flags.IntP("capacity", "c", 1024, "table capacity")
	_ = flags.Parse(os.Args[1:])

	if *capacity < 1 {
		fmt.Fprintln(os.Stderr, "error: capacity must be positive")
		os.Exit(1)
	}

	r := &REPL{
		table: stashtable.New[string, string](*capacity),
	}

	if err := r.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// REPL holds the interactive session state.
type REPL struct {
	table *stashtable.Stash[string, string]
	liner *liner.State
}

var commands = []string{
	"put", "add", "get", "find", "del", "keys", "dump",
	"len", "cap", "bulk", "bench", "clear", "help", "exit", "quit",
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".stash_history")
}

// Run starts the interactive loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(func(line string) []string {
		var out []string

		for _, c := range commands {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				out = append(out, c)
			}
		}

		return out
	})

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("stash - stashtable CLI (capacity=%d)\n", r.table.Cap())
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("stash> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if r.dispatch(line) {
			break
		}
	}

	if f, err := os.Create(historyFile()); err == nil {
		_, _ = r.liner.WriteHistory(f)
		f.Close()
	}

	return nil
}

// dispatch runs one command line. It returns true when the session ends.
func (r *REPL) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "exit", "quit", "q":
		fmt.Println("Bye!")

		return true
	case "help":
		r.printHelp()
	case "put":
		if len(args) != 2 {
			fmt.Println("usage: put <key> <value>")

			break
		}

		ref, inserted := r.table.Upsert(args[0], args[1])
		if ref == stashtable.NotInStash {
			fmt.Println("table is full")

			break
		}

		fmt.Printf("slot=%v inserted=%v\n", ref, inserted)
	case "add":
		if len(args) != 2 {
			fmt.Println("usage: add <key> <value>")

			break
		}

		ref, inserted := r.table.Insert(args[0], args[1])

		switch {
		case ref == stashtable.NotInStash:
			fmt.Println("table is full")
		case !inserted:
			fmt.Printf("key exists at slot=%v, value kept\n", ref)
		default:
			fmt.Printf("slot=%v\n", ref)
		}
	case "get":
		if len(args) != 1 {
			fmt.Println("usage: get <key>")

			break
		}

		if !r.table.WithValue(args[0], func(v *string) {
			fmt.Printf("%s\n", *v)
		}) {
			fmt.Println("not found")
		}
	case "find":
		if len(args) != 1 {
			fmt.Println("usage: find <key>")

			break
		}

		fmt.Printf("slot=%v\n", r.table.FindIndex(args[0]))
	case "del":
		if len(args) != 1 {
			fmt.Println("usage: del <key>")

			break
		}

		r.table.Delete(args[0])
	case "keys":
		n := 0

		for key, ref := range r.table.Keys() {
			fmt.Printf("%4v  %s\n", ref, key)

			n++
		}

		fmt.Printf("%d key(s)\n", n)
	case "dump":
		fmt.Println(r.table.String())
	case "len":
		fmt.Println(r.table.Len())
	case "cap":
		fmt.Println(r.table.Cap())
	case "bulk":
		r.cmdBulk(args)
	case "bench":
		r.cmdBench(args)
	case "clear":
		r.table.Clear()
		fmt.Println("cleared")
	default:
		fmt.Printf("unknown command %q; type 'help'\n", cmd)
	}

	return false
}

func (r *REPL) cmdBulk(args []string) {
	count, err := countArg(args)
	if err != nil {
		fmt.Println("usage: bulk <count>")

		return
	}

	inserted := 0

	for range count {
		var raw [8]byte

		_, _ = rand.Read(raw[:])
		key := hex.EncodeToString(raw[:])

		if _, ok := r.table.Insert(key, key); ok {
			inserted++
		}
	}

	fmt.Printf("inserted %d/%d\n", inserted, count)
}

func (r *REPL) cmdBench(args []string) {
	count, err := countArg(args)
	if err != nil {
		fmt.Println("usage: bench <count>")

		return
	}

	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("bench-%08d", i)
	}

	start := time.Now()

	for i, key := range keys {
		r.table.Upsert(key, strconv.Itoa(i))
	}

	putDur := time.Since(start)
	start = time.Now()
	misses := 0

	for _, key := range keys {
		if !r.table.WithValue(key, func(*string) {}) {
			misses++
		}
	}

	getDur := time.Since(start)

	fmt.Printf("put: %d ops in %v (%.0f ops/s)\n", count, putDur, float64(count)/putDur.Seconds())
	fmt.Printf("get: %d ops in %v (%.0f ops/s), %d misses\n", count, getDur, float64(count)/getDur.Seconds(), misses)

	for _, key := range keys {
		r.table.Delete(key)
	}
}

func countArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one argument")
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid count %q", args[0])
	}

	return n, nil
}

func (r *REPL) printHelp() {
	fmt.Print(`Commands:
  put <key> <value>    Insert or update an entry
  add <key> <value>    Insert only; refuses existing keys
  get <key>            Read an entry under its slot lock
  find <key>           Lock-free lookup, prints the slot ref
  del <key>            Delete an entry
  keys                 List live (key, slot) pairs
  dump                 Print the whole table
  len                  Count live entries
  cap                  Show capacity
  bulk <count>         Insert N random entries
  bench <count>        Benchmark put+get round trips
  clear                Remove everything
  exit / quit / q      Exit
`)
}
