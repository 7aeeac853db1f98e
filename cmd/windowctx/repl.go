package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja/parser"
	"github.com/peterh/liner"

	"github.com/GriffinCanCode/windowctx/internal/config"
)

const (
	historyFile = ".windowctx_history"
	promptMain  = "window> "
	promptCont  = "   ...> "
)

const replHelp = `REPL commands:
  :globals   List the window's properties
  :help      Show this help
  :quit      Exit the REPL
`

func cmdRepl(args []string) int {
	fs, flags := newFlagSet("repl", os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	rt, w, logger, err := newRuntime(ctx, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	defer rt.Close()
	defer logger.Sync()

	fmt.Printf("windowctx %s REPL, window %s\n", config.Version, w.ID())
	fmt.Println("Ctrl+C cancels input, Ctrl+D exits. Type :help for commands.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		src, ok := readStatement(ln)
		if !ok {
			fmt.Println()
			return 0
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return 0
			case ":help":
				fmt.Print(replHelp)
			case ":globals":
				globals, err := rt.Windows.Globals(w.ID())
				if err != nil {
					fmt.Fprintln(os.Stderr, red(err.Error()))
					continue
				}
				for _, g := range globals {
					fmt.Printf("%s %s\n", g.Name, gray(g.Type))
				}
			default:
				fmt.Println("unknown command. Type :help for commands.")
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		result, err := rt.Windows.Evaluate(ctx, w.ID(), src, "<repl>")
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}
		for _, entry := range result.Console {
			fmt.Println(gray("["+entry.Level+"]"), entry.Message)
		}
		if result.Error != "" {
			fmt.Fprintln(os.Stderr, red(result.Error))
			continue
		}
		fmt.Println(blue(formatValue(result.Value)))
	}
}

// readStatement reads lines until they parse or fail for a reason other
// than running out of input
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !incomplete(src) {
			return src, true
		}
	}
}

// incomplete reports whether src fails to parse only because it ends early
func incomplete(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), ":") {
		return false
	}
	_, err := parser.ParseFile(nil, "", src, 0)
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Unexpected end of input")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "undefined"
	case string:
		return fmt.Sprintf("%q", t)
	}
	var b strings.Builder
	if err := writeJSON(&b, v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
