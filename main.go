// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/cycle6502/host"
	"golang.org/x/term"
)

var (
	assemble string
	origin   uint
)

func init() {
	flag.StringVar(&assemble, "a", "", "assemble file into memory before running commands")
	flag.UintVar(&origin, "o", 0x1000, "origin address used by -a")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: cycle6502 [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if origin > 0xffff {
		exitOnError(fmt.Errorf("origin $%X out of range", origin))
	}

	h := host.New()

	// Do command-line assemble if requested.
	if assemble != "" {
		if err := h.AssembleFile(assemble, uint16(origin)); err != nil {
			exitOnError(err)
		}
	}

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run commands from standard input, prompting only when it is a
	// terminal.
	h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
