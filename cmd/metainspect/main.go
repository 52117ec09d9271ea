package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/meta-runtime/jsonmeta"
	"github.com/wippyai/meta-runtime/meta"
	"github.com/wippyai/meta-runtime/wasmbind"
)

func main() {
	var (
		jsonFile    = flag.String("json", "", "Path to a {\"Type\": {...}} document (default: built-in sample)")
		typeName    = flag.String("type", "", "Describe only this type")
		list        = flag.Bool("list", false, "List registered types and exit")
		call        = flag.String("call", "", "Method to call on the decoded object")
		args        = flag.String("args", "", "Method arguments as JSON, separated by ';'")
		viaWasm     = flag.Bool("wasm", false, "Call the method through a wazero host module")
		strict      = flag.Bool("strict", false, "Reject unknown JSON members")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer l.Sync()
		meta.SetLogger(l.Named("meta"))
		jsonmeta.SetLogger(l.Named("jsonmeta"))
		wasmbind.SetLogger(l.Named("wasmbind"))
	}

	reg, err := newDemoRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *list || *typeName != "" {
		if err := listTypes(os.Stdout, reg, *typeName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts := jsonmeta.DefaultOptions()
	opts.DisallowUnknownFields = *strict
	if err := run(reg, opts, *jsonFile, *call, *args, *viaWasm); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(reg *meta.Registry, opts jsonmeta.Options, jsonFile, method, argStr string, viaWasm bool) error {
	var src io.Reader = strings.NewReader(sampleDocument)
	if jsonFile != "" {
		f, err := os.Open(jsonFile)
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		src = f
	}

	dec := jsonmeta.NewDecoder(reg, opts)
	obj, err := dec.DecodeNew(src)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	printObject(os.Stdout, &obj, "")
	fmt.Println()

	if method == "" {
		return listTypes(os.Stdout, reg, "")
	}

	var res meta.Value
	if viaWasm {
		res, err = callThroughWasm(context.Background(), dec, &obj, method, splitArgs(argStr))
	} else {
		res, err = callMethod(dec, &obj, method, splitArgs(argStr))
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	fmt.Printf("Result: %s\n", res.String())

	fmt.Println()
	printObject(os.Stdout, &obj, "")
	return nil
}
