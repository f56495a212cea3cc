package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ssaxena10/Buffer-Manager/internal"
	"github.com/ssaxena10/Buffer-Manager/internal/bufferpool"
	"github.com/ssaxena10/Buffer-Manager/internal/pagefile"
)

func main() {
	var (
		cfgPath = flag.String("config", "bufferctl.yaml", "path to yaml config")
		create  = flag.Bool("create", false, "create the page file if it does not exist")
	)
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if cfg.Pool.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	strategy, err := bufferpool.ParseStrategy(cfg.Pool.Strategy)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	path := cfg.Pool.PageFile
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if !*create {
			log.Fatalf("page file %s does not exist (use -create)", path)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("create data dir: %v", err)
			}
		}
		if err := pagefile.Create(path); err != nil {
			log.Fatalf("create page file: %v", err)
		}
	}

	pool, err := bufferpool.NewPool(path, cfg.Pool.NumFrames, strategy, cfg.Pool.LRUK)
	if err != nil {
		log.Fatalf("open pool: %v", err)
	}

	if err := repl(pool, path, strategy); err != nil {
		log.Fatalf("repl: %v", err)
	}

	if err := pool.Shutdown(); err != nil {
		if errors.Is(err, bufferpool.ErrPoolHasPinnedPages) {
			log.Fatalf("shutdown: pages are still pinned; unpin them first")
		}
		log.Fatalf("shutdown: %v", err)
	}
}

func repl(pool *bufferpool.Pool, path string, strategy bufferpool.Strategy) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "buffer> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	// Handles held open by `pin`; `unpin` releases them.
	pinned := map[bufferpool.PageID]*bufferpool.PageHandle{}

	fmt.Printf("pool on %s (%d frames, %s)\n", path, pool.NumFrames(), strategy)
	fmt.Println("type help for commands")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("^C")
			continue
		}
		if err != nil {
			// EOF
			fmt.Println()
			return nil
		}

		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		cmd := fields[0]
		switch cmd {
		case "quit", "exit", "\\q":
			return nil
		case "help":
			printHelp()
		case "stats":
			fmt.Printf("frames:  %v\n", pool.FrameContents())
			fmt.Printf("dirty:   %v\n", pool.DirtyFlags())
			fmt.Printf("pins:    %v\n", pool.FixCounts())
			fmt.Printf("read=%d write=%d\n", pool.NumReadIO(), pool.NumWriteIO())
		case "content":
			fmt.Println(pool.Content())
		case "flush":
			if err := pool.FlushAll(); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "pin", "unpin", "dirty", "force", "read":
			pageNum, ok := parsePage(fields)
			if !ok {
				fmt.Printf("usage: %s PAGE\n", cmd)
				continue
			}
			runPageCmd(pool, pinned, cmd, pageNum)
		case "write":
			pageNum, ok := parsePage(fields)
			if !ok || len(fields) < 3 {
				fmt.Println("usage: write PAGE TEXT")
				continue
			}
			writePage(pool, pageNum, strings.Join(fields[2:], " "))
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func parsePage(fields []string) (bufferpool.PageID, bool) {
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return 0, false
	}
	return bufferpool.PageID(n), true
}

func runPageCmd(pool *bufferpool.Pool, pinned map[bufferpool.PageID]*bufferpool.PageHandle, cmd string, pageNum bufferpool.PageID) {
	switch cmd {
	case "pin":
		h, err := pool.Pin(pageNum)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		pinned[pageNum] = h
		fmt.Printf("pinned page %d\n", pageNum)
	case "unpin":
		h, ok := pinned[pageNum]
		if !ok {
			h = &bufferpool.PageHandle{PageNum: pageNum}
		}
		if err := pool.Unpin(h); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		delete(pinned, pageNum)
	case "dirty":
		if err := pool.MarkDirty(&bufferpool.PageHandle{PageNum: pageNum}); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	case "force":
		if err := pool.ForcePage(&bufferpool.PageHandle{PageNum: pageNum}); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	case "read":
		h, err := pool.Pin(pageNum)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("%q\n", firstLine(h.Data))
		if err := pool.Unpin(h); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func writePage(pool *bufferpool.Pool, pageNum bufferpool.PageID, text string) {
	h, err := pool.Pin(pageNum)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	n := copy(h.Data, text)
	if n < len(h.Data) {
		h.Data[n] = 0
	}
	if err := pool.MarkDirty(h); err != nil {
		fmt.Printf("error: %v\n", err)
	}
	if err := pool.Unpin(h); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// firstLine returns the page prefix up to the first NUL or newline.
func firstLine(data []byte) string {
	for i, b := range data {
		if b == 0 || b == '\n' {
			return string(data[:i])
		}
	}
	return string(data)
}

func printHelp() {
	fmt.Println(`commands:
  pin PAGE         pin a page (keeps the handle until unpin)
  unpin PAGE       release one pin
  dirty PAGE       mark a resident page dirty
  force PAGE       write a resident page to disk now
  write PAGE TEXT  pin, overwrite the page prefix with TEXT, dirty, unpin
  read PAGE        pin, print the page prefix, unpin
  flush            write all dirty unpinned pages
  stats            frame contents, dirty flags, pin counts, io counters
  content          pool content string
  quit             shut the pool down and exit`)
}
