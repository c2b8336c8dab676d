// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// crates accesses the crates listed in a description file.
//
// Every bus access is done with the bus lock held, so it can safely be used
// while another process is using the crates.
//
// Usage:
//
//  crates -f <file> list
//  crates -f <file> peek <crate> <am> <addr> [8|16|32]
//  crates -f <file> poke <crate> <am> <addr> <value> [8|16|32]
//  crates -f <file> dump <crate> <am> <addr> <size>
//  crates -f <file> smoketest [-crate N] [-am AM] [-addr ADDR] [-size N]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strconv"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/devices/screen"
	"periph.io/x/crate/hostextra"
	"periph.io/x/crate/subsystem"
	"periph.io/x/crate/subsystem/subsystemsmoketest"
)

// env is what the commands run against.
type env struct {
	s *subsystem.Subsystem
	w io.Writer
	// with calls f with the bus lock held.
	with func(f func() error) error
	// heat renders dumps as a heat map instead of hexadecimal.
	heat bool
}

func (e *env) crate(arg string) (bus.Interface, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid crate index %q", arg)
	}
	return e.s.Interface(i)
}

func (e *env) list(args []string) error {
	if len(args) != 0 {
		return errors.New("list takes no argument")
	}
	for n, i := range e.s.All() {
		o, _ := e.s.Ownership(n)
		fmt.Fprintf(e.w, "%d: %s\n", n, i)
		fmt.Fprintf(e.w, "  Type:           %s\n", i.DeviceType())
		fmt.Fprintf(e.w, "  Ownership:      %s\n", o)
		fmt.Fprintf(e.w, "  Mapping:        %t\n", i.CanMap())
		fmt.Fprintf(e.w, "  ListProcessor:  %t\n", i.HasListProcessor())
		fmt.Fprintf(e.w, "  BlockTransfer:  %t\n", i.HasBlockTransfer())
	}
	return nil
}

func (e *env) peek(args []string) error {
	if len(args) != 3 && len(args) != 4 {
		return errors.New("usage: peek <crate> <am> <addr> [8|16|32]")
	}
	i, am, addr, err := e.target(args)
	if err != nil {
		return err
	}
	w, err := parseWidth(args[3:])
	if err != nil {
		return err
	}
	var v uint32
	err = e.with(func() error {
		p, err := i.CreatePio()
		if err != nil {
			return err
		}
		v, err = bus.PioRead(p, am, addr, w)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.w, "0x%0*x\n", 2*w.Bytes(), v)
	return nil
}

func (e *env) poke(args []string) error {
	if len(args) != 4 && len(args) != 5 {
		return errors.New("usage: poke <crate> <am> <addr> <value> [8|16|32]")
	}
	i, am, addr, err := e.target(args)
	if err != nil {
		return err
	}
	w, err := parseWidth(args[4:])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[3], 0, 8*w.Bytes())
	if err != nil {
		return fmt.Errorf("invalid value %q for %s", args[3], w)
	}
	return e.with(func() error {
		p, err := i.CreatePio()
		if err != nil {
			return err
		}
		return bus.PioWrite(p, am, addr, w, uint32(v))
	})
}

func (e *env) dump(args []string) error {
	if len(args) != 4 {
		return errors.New("usage: dump <crate> <am> <addr> <size>")
	}
	i, am, addr, err := e.target(args)
	if err != nil {
		return err
	}
	size, err := strconv.ParseUint(args[3], 0, 32)
	if err != nil || size == 0 || size%4 != 0 {
		return fmt.Errorf("invalid size %q; it must be a non zero multiple of 4", args[3])
	}
	b := make([]byte, size)
	if err := e.with(func() error { return read(i, am, addr, b) }); err != nil {
		return err
	}
	if e.heat {
		return screen.NewWriter(e.w, 64).Dump(addr, b)
	}
	for off := 0; off < len(b); off += 16 {
		end := off + 16
		if end > len(b) {
			end = len(b)
		}
		fmt.Fprintf(e.w, "%08x  % x\n", addr+uint32(off), b[off:end])
	}
	return nil
}

func (e *env) target(args []string) (bus.Interface, bus.AddressModifier, uint32, error) {
	i, err := e.crate(args[0])
	if err != nil {
		return nil, 0, 0, err
	}
	am, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid address modifier %q", args[1])
	}
	addr, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid address %q", args[2])
	}
	return i, bus.AddressModifier(am), uint32(addr), nil
}

// read fills b from the bus, through a mapping when possible.
func read(i bus.Interface, am bus.AddressModifier, addr uint32, b []byte) error {
	if i.CanMap() {
		r, err := i.CreateAddressRange(am, addr, uint32(len(b)))
		if err == nil {
			copy(b, r.Bytes())
			return r.Close()
		}
		log.Printf("%s: mapping failed, falling back to single shot accesses: %v", i, err)
	}
	p, err := i.CreatePio()
	if err != nil {
		return err
	}
	for off := 0; off < len(b); off += 4 {
		v, err := p.Read32(am, addr+uint32(off))
		if err != nil {
			return err
		}
		b[off], b[off+1], b[off+2], b[off+3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
	}
	return nil
}

func parseWidth(args []string) (bus.Width, error) {
	if len(args) == 0 {
		return bus.D32, nil
	}
	switch args[0] {
	case "8":
		return bus.D8, nil
	case "16":
		return bus.D16, nil
	case "32":
		return bus.D32, nil
	default:
		return 0, fmt.Errorf("invalid width %q", args[0])
	}
}

func (e *env) run(cmd string, args []string) error {
	switch cmd {
	case "list":
		return e.list(args)
	case "peek":
		return e.peek(args)
	case "poke":
		return e.poke(args)
	case "dump":
		return e.dump(args)
	case "smoketest":
		t := subsystemsmoketest.SmokeTest{Subsystem: e.s}
		f := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
		return t.Run(f, args)
	default:
		return fmt.Errorf("unknown command %q, try -help", cmd)
	}
}

func mainImpl() error {
	verbose := flag.Bool("v", false, "verbose mode")
	file := flag.String("f", os.Getenv("CRATES"), "description file; defaults to $CRATES")
	key := flag.Uint("key", uint(subsystem.DefaultKey), "IPC key of the bus lock")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() == 0 {
		return errors.New("a command is required, try -help")
	}
	if *file == "" {
		return errors.New("-f is required")
	}

	if _, err := hostextra.Init(); err != nil {
		return err
	}
	s := subsystem.New(nil, subsystem.WithKey(uint32(*key)))
	defer s.DestroyAll()
	crates, err := s.LoadFile(*file)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d crates from %s", len(crates), *file)

	e := env{s: s, w: os.Stdout, with: s.With}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		e.w = colorable.NewColorableStdout()
		e.heat = true
	}
	return e.run(flag.Arg(0), flag.Args()[1:])
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "crates: %s.\n", err)
		os.Exit(1)
	}
}
