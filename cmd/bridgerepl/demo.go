package main

import (
	"strings"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/bridge"
	"github.com/wippyai/hostbridge/result"
)

// Demo exports covering the three registration strategies.
var (
	_ = bridge.Register("add", func(e *bridge.Env, a, b int64) int64 {
		return a + b
	}, "Add two integers.")

	_ = bridge.Register("greet", func(e *bridge.Env, name string) string {
		return "Hello, " + name + "!"
	}, "Greet someone by name.")

	_ = bridge.Register("word-count", func(e *bridge.Env, text string) int64 {
		return int64(len(strings.Fields(text)))
	}, "Count whitespace-separated words.")

	_ = bridge.RegisterWrapped("double", 1, 1, doubleNumber,
		"Double an integer or float, keeping its type.")

	_ = bridge.RegisterWrapped("vec-sum", 1, 1, vecSum,
		"Sum the numeric elements of a vector.")

	_ = bridge.RegisterRaw("ping", 0, 0, pingRaw, "Return the symbol pong.", nil)
)

func doubleNumber(e *bridge.Env, args []bridge.Value) bridge.ValueResult {
	if n := args[0].AsInt(); n.HasValue() {
		return e.MakeInt(2 * n.Value())
	}
	return result.AndThen(args[0].AsFloat(), func(f float64) bridge.ValueResult {
		return e.MakeFloat(2 * f)
	})
}

func vecSum(e *bridge.Env, args []bridge.Value) bridge.ValueResult {
	vec := args[0]
	var sum float64
	for i := 0; i < vec.Size(); i++ {
		elem := vec.At(i)
		if elem.HasError() {
			return elem
		}
		f := elem.Value().AsFloat()
		if f.HasError() {
			return result.Err[bridge.Value, *bridge.Error](f.Err())
		}
		sum += f.Value()
	}
	return e.MakeFloat(sum)
}

func pingRaw(tab *abi.Env, args []abi.Ref, data any) abi.Ref {
	return tab.Intern("pong")
}
