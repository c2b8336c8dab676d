// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// crate-probe prints out the crate adapters found on the host, with the
// description line to add to a description file to use them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"periph.io/x/crate/hostextra/probe"
)

func process(w io.Writer, all []probe.Candidate) {
	plural := ""
	if len(all) != 1 {
		plural = "s"
	}
	fmt.Fprintf(w, "Found %d adapter%s\n", len(all), plural)
	for i := range all {
		c := &all[i]
		fmt.Fprintf(w, "- %s\n", c)
		if c.Serial != "" {
			fmt.Fprintf(w, "  Serial:       %s\n", c.Serial)
		}
		fmt.Fprintf(w, "  Description:  %s\n", c.Description())
	}
}

func mainImpl() error {
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	all, err := probe.All()
	if err != nil {
		return err
	}
	process(os.Stdout, all)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "crate-probe: %s.\n", err)
		os.Exit(1)
	}
}
