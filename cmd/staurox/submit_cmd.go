package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"staurox/pkg/attest"
	"staurox/pkg/client"
)

type sigFlags []client.GuardianSignature

func (s *sigFlags) String() string { return fmt.Sprintf("%d signatures", len(*s)) }

func (s *sigFlags) Set(value string) error {
	index, rawSig, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("signature must be <index:base64>, got %q", value)
	}
	idx, err := strconv.ParseUint(index, 10, 8)
	if err != nil {
		return fmt.Errorf("parse guardian index: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(rawSig)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	*s = append(*s, client.GuardianSignature{GuardianIndex: uint8(idx), Signature: decoded})
	return nil
}

func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var server, bridge string
	var capacity int
	fs.StringVar(&server, "server", "", "server base URL")
	fs.StringVar(&bridge, "bridge", "", "bridge id")
	fs.IntVar(&capacity, "capacity", 0, "log capacity (server default if 0)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if bridge == "" {
		fmt.Fprintln(os.Stderr, "init requires --bridge")
		return 1
	}

	c := client.NewClient(serverURL(server))
	info, err := c.EnsureLog(context.Background(), bridge, capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ensure log: %v\n", err)
		return 1
	}
	return printJSON(info)
}

func runSubmit(args []string) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var server, bridge, payloadPath string
	var capacity int
	var sigs sigFlags
	fs.StringVar(&server, "server", "", "server base URL")
	fs.StringVar(&bridge, "bridge", "", "bridge id (derived from payload if empty)")
	fs.StringVar(&payloadPath, "payload", "", "attestation payload path")
	fs.IntVar(&capacity, "capacity", 0, "log capacity for lazy creation (server default if 0)")
	fs.Var(&sigs, "sig", "guardian signature as <index:base64>, repeatable")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if payloadPath == "" {
		fmt.Fprintln(os.Stderr, "submit requires --payload")
		return 1
	}

	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
		return 1
	}

	// Decode locally first: a malformed payload should fail here, not after a
	// round trip, and the decoded form names the bridge when --bridge is not
	// given.
	att, err := attest.Decode(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode payload: %v\n", err)
		return 1
	}
	if bridge == "" {
		bridge = att.BridgeID()
	}

	c := client.NewClient(serverURL(server))
	ctx := context.Background()

	// The log is created lazily on first use; ensuring it here keeps the
	// submission path free of first-submission special cases.
	if _, err := c.EnsureLog(ctx, bridge, capacity); err != nil {
		fmt.Fprintf(os.Stderr, "ensure log: %v\n", err)
		return 1
	}

	result, err := c.Submit(ctx, bridge, payload, sigs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		return 1
	}
	return printJSON(result)
}
