package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/bridge"
	"github.com/wippyai/hostbridge/emulator"
)

func main() {
	var (
		funcName    = flag.String("call", "", "Function to call")
		argsStr     = flag.String("args", "", "Arguments (comma-separated)")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *debug {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		bridge.SetLogger(log.Named("bridge"))
		emulator.SetLogger(log.Named("emulator"))
	}

	if !*list && !*interactive && *funcName == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridgerepl -call <name> [-args a,b,...]")
		fmt.Fprintln(os.Stderr, "       bridgerepl -list")
		fmt.Fprintln(os.Stderr, "       bridgerepl -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*funcName, *argsStr, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(funcName, argsStr string, listOnly bool) error {
	exports := bridge.DefaultRegistry().Exports()

	fmt.Printf("Exported functions:\n")
	for _, d := range exports {
		fmt.Printf("  %s%s\n", d.Name(), aritySuffix(d))
		if d.Doc() != "" {
			fmt.Printf("      %s\n", d.Doc())
		}
	}

	if listOnly {
		return nil
	}

	h := emulator.New()
	if status := bridge.Init(h.Runtime(), "bridgerepl-demo"); status != bridge.InitOK {
		return fmt.Errorf("module init failed with status %d", status)
	}

	e := bridge.New(h.NewEnv())
	var args []any
	if argsStr != "" {
		for _, raw := range strings.Split(argsStr, ",") {
			args = append(args, parseArg(raw))
		}
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argsStr)
	r := e.Call(funcName, args...)
	if r.HasError() {
		return fmt.Errorf("call %s: %s", funcName, r.Err())
	}
	fmt.Printf("Result: %s\n", formatValue(r.Value()))
	return nil
}

func aritySuffix(d bridge.Defun) string {
	min, max := d.Arity()
	if max == abi.Variadic {
		return fmt.Sprintf(" (%d..n args)", min)
	}
	if min == max {
		return fmt.Sprintf(" (%d args)", min)
	}
	return fmt.Sprintf(" (%d..%d args)", min, max)
}

// parseArg guesses the host type of a textual argument: integers and floats
// parse as numbers, t/nil as booleans, everything else stays a string.
// Surrounding double quotes force the string reading.
func parseArg(raw string) any {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	switch s {
	case "t":
		return true
	case "nil":
		return false
	}
	return s
}

// formatValue renders a result the way the host would print it, trying the
// concrete readings before falling back to the type name.
func formatValue(v bridge.Value) string {
	if tag, ok := v.Type(); ok {
		switch tag {
		case abi.TagInt0, abi.TagInt1:
			return strconv.FormatInt(v.AsInt().ValueOr(0), 10)
		case abi.TagFloat:
			return strconv.FormatFloat(v.AsFloat().ValueOr(0), 'g', -1, 64)
		case abi.TagString:
			return strconv.Quote(v.AsString().ValueOr(""))
		case abi.TagSymbol:
			return v.Name().ValueOr("#<symbol>")
		}
	}
	if n := v.AsInt(); n.HasValue() {
		return strconv.FormatInt(n.Value(), 10)
	}
	if f := v.AsFloat(); f.HasValue() {
		return strconv.FormatFloat(f.Value(), 'g', -1, 64)
	}
	if s := v.AsString(); s.HasValue() {
		return strconv.Quote(s.Value())
	}
	return "#<" + v.TypeOf().Name().ValueOr("value") + ">"
}
