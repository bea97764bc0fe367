package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "init":
		return runInit(args[2:])
	case "submit":
		return runSubmit(args[2:])
	case "recent":
		return runRecent(args[2:])
	case "get":
		return runGet(args[2:])
	case "info":
		return runInfo(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "staurox"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s init --bridge <id> [--capacity <n>] [--server <url>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s submit --payload <file> [--bridge <id>] [--capacity <n>] [--sig <index:base64>]... [--server <url>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s recent --bridge <id> [--limit <n>] [--before <seq>] [--server <url>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s get --bridge <id> --sequence <n> [--server <url>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s info --bridge <id> [--server <url>]\n", name)
}

func serverURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("STAUROX_SERVER"); env != "" {
		return env
	}
	return "http://localhost:8080"
}
