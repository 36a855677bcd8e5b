// bigqueue-cli is a simple REPL for poking at a bigqueue directory.
//
// Usage:
//
//	bigqueue-cli [--arena-size=N] [--max-arenas=N] [--reset] [--config=PATH] [queue-dir]
//
// The queue directory may be omitted when a config file sets queue_dir.
//
// Commands (in REPL):
//
//	push <text>           Push a UTF-8 string as the payload
//	pop                    Pop and print the next record
//	peek                   Peek the next record without consuming it
//	dequeue                Consume the next record without printing it
//	empty                  Report whether the queue is empty
//	shrink                 Reclaim consumed arena files
//	bulk <count> [prefix]  Push N generated records
//	info                   Show queue directory and config
//	help                   Show this help
//	exit / quit / q        Exit
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/arenafile/bigqueue/pkg/bigqueue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("bigqueue-cli", flag.ExitOnError)

	arenaSize := fs.Int64("arena-size", bigqueue.DefaultArenaSize, "arena file size in bytes")
	maxArenas := fs.Int("max-arenas", bigqueue.DefaultMaxArenasInMem, "max resident arenas in the LRU cache")
	reset := fs.Bool("reset", false, "discard existing queue state before opening")
	configPath := fs.String("config", "", "path to a JSONC config file (default: .bigqueue.json in the working directory)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bigqueue-cli [options] [queue-dir]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	fileCfg, err := loadFileConfig(workDir, *configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	var dirArg string
	if fs.NArg() >= 1 {
		dirArg = fs.Arg(0)
	}

	dir, cfg := resolveConfig(fileCfg, dirArg, *arenaSize, *maxArenas, setFlags)

	if dir == "" {
		fs.Usage()

		return errors.New("missing queue directory (pass it as an argument or set queue_dir in a config file)")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}

	q, err := bigqueue.OpenWithConfig(dir, *reset, cfg)
	if err != nil {
		return fmt.Errorf("opening queue: %w", err)
	}
	defer q.Close()

	repl := &REPL{q: q, dir: dir, cfg: cfg}

	return repl.Run()
}

// REPL is the interactive command loop.
type REPL struct {
	q     *bigqueue.Queue
	dir   string
	cfg   bigqueue.Config
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".bigqueue_cli_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("bigqueue-cli (dir=%s, arena_size=%d, max_arenas=%d)\n", r.dir, r.cfg.ArenaSize, r.cfg.MaxArenasInMem)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("bigqueue> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

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
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "push":
			r.cmdPush(args)

		case "pop":
			r.cmdPop()

		case "peek":
			r.cmdPeek()

		case "dequeue":
			r.cmdDequeue()

		case "empty":
			fmt.Printf("empty: %v\n", r.q.IsEmpty())

		case "shrink":
			r.q.Shrink()
			fmt.Println("OK: shrink complete")

		case "bulk":
			r.cmdBulk(args)

		case "info":
			r.cmdInfo()

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"push", "pop", "peek", "dequeue", "empty", "shrink",
		"bulk", "info", "clear", "cls", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  push <text>            Push a UTF-8 string as the payload")
	fmt.Println("  pop                    Pop and print the next record")
	fmt.Println("  peek                   Peek the next record without consuming it")
	fmt.Println("  dequeue                Consume the next record without printing it")
	fmt.Println("  empty                  Report whether the queue is empty")
	fmt.Println("  shrink                 Reclaim consumed arena files")
	fmt.Println("  bulk <count> [prefix]  Push N generated records")
	fmt.Println("  info                   Show queue directory and config")
	fmt.Println("  help                   Show this help")
	fmt.Println("  exit / quit / q        Exit")
}

// formatPayload shows a record as text if printable, otherwise hex.
func formatPayload(data []byte) string {
	printable := true

	for _, b := range data {
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			printable = false

			break
		}
	}

	if printable {
		return fmt.Sprintf("%q", string(data))
	}

	return hex.EncodeToString(data)
}

func (r *REPL) cmdPush(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: push <text>")

		return
	}

	payload := []byte(strings.Join(args, " "))

	if err := r.q.Push(payload); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: pushed %d bytes\n", len(payload))
}

func (r *REPL) cmdPop() {
	data, err := r.q.Pop()
	if err != nil {
		if errors.Is(err, bigqueue.ErrQueueEmpty) {
			fmt.Println("(empty)")

			return
		}

		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println(formatPayload(data))
}

func (r *REPL) cmdPeek() {
	data, err := r.q.Peek()
	if err != nil {
		if errors.Is(err, bigqueue.ErrQueueEmpty) {
			fmt.Println("(empty)")

			return
		}

		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println(formatPayload(data))
}

func (r *REPL) cmdDequeue() {
	err := r.q.Dequeue()
	if err != nil {
		if errors.Is(err, bigqueue.ErrQueueEmpty) {
			fmt.Println("(empty)")

			return
		}

		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK: dequeued")
}

func (r *REPL) cmdBulk(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bulk <count> [prefix]")

		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Println("Error: count must be a positive integer")

		return
	}

	prefix := ""
	if len(args) >= 2 {
		prefix = args[1]
	}

	start := time.Now()

	for i := 0; i < count; i++ {
		payload := fmt.Sprintf("%s-%d", prefix, i)
		if err := r.q.Push([]byte(payload)); err != nil {
			fmt.Printf("Error at entry %d: %v\n", i+1, err)

			return
		}
	}

	elapsed := time.Since(start)
	rate := float64(count) / elapsed.Seconds()
	fmt.Printf("OK: pushed %d entries in %v (%.0f ops/sec)\n", count, elapsed.Round(time.Millisecond), rate)
}

func (r *REPL) cmdInfo() {
	fmt.Printf("Queue Info:\n")
	fmt.Printf("  Directory:     %s\n", r.dir)
	fmt.Printf("  Arena size:    %d bytes\n", r.cfg.ArenaSize)
	fmt.Printf("  Max arenas:    %d\n", r.cfg.MaxArenasInMem)
	fmt.Printf("  Empty:         %v\n", r.q.IsEmpty())
}
