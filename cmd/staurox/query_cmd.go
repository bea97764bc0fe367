package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"staurox/pkg/client"
)

func runRecent(args []string) int {
	fs := flag.NewFlagSet("recent", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var server, bridge string
	var limit int
	var before uint64
	fs.StringVar(&server, "server", "", "server base URL")
	fs.StringVar(&bridge, "bridge", "", "bridge id")
	fs.IntVar(&limit, "limit", 0, "max entries (server default if 0)")
	fs.Uint64Var(&before, "before", 0, "only entries with sequence below this")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if bridge == "" {
		fmt.Fprintln(os.Stderr, "recent requires --bridge")
		return 1
	}

	var beforePtr *uint64
	if before > 0 {
		beforePtr = &before
	}

	c := client.NewClient(serverURL(server))
	entries, err := c.Recent(context.Background(), bridge, limit, beforePtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recent: %v\n", err)
		return 1
	}
	return printJSON(entries)
}

func runGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var server, bridge string
	var sequence uint64
	haveSeq := false
	fs.StringVar(&server, "server", "", "server base URL")
	fs.StringVar(&bridge, "bridge", "", "bridge id")
	// Sequence 0 is a real entry, so presence is tracked instead of using a
	// zero-value default.
	fs.Func("sequence", "entry sequence number", func(v string) error {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		sequence = parsed
		haveSeq = true
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if bridge == "" || !haveSeq {
		fmt.Fprintln(os.Stderr, "get requires --bridge and --sequence")
		return 1
	}

	c := client.NewClient(serverURL(server))
	entry, err := c.GetBySequence(context.Background(), bridge, sequence)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get: %v\n", err)
		return 1
	}
	return printJSON(entry)
}

func runInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var server, bridge string
	fs.StringVar(&server, "server", "", "server base URL")
	fs.StringVar(&bridge, "bridge", "", "bridge id")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if bridge == "" {
		fmt.Fprintln(os.Stderr, "info requires --bridge")
		return 1
	}

	c := client.NewClient(serverURL(server))
	info, err := c.Info(context.Background(), bridge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info: %v\n", err)
		return 1
	}
	return printJSON(info)
}
