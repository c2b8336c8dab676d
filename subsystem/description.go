// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package subsystem

import (
	"bufio"
	"io"
	"log"
	"os"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/desc"
)

// ProcessDescription creates the interface described by line, installs it as
// Owned and returns its crate number.
//
// The comment and surrounding blanks are stripped first. The error wraps
// bus.ErrInvalidInterfaceType if no interface could be created.
func (s *Subsystem) ProcessDescription(line string) (int, error) {
	i, err := s.f.Create(desc.Clean(line))
	if err != nil {
		return 0, &bus.DescriptionError{Text: line, Err: err}
	}
	return s.Install(i, Owned), nil
}

// ProcessDescriptionFile creates one interface per description line read
// from r and installs them, as Owned, in file order.
//
// The whole file is validated first: if any line fails, every interface
// created so far is closed and the registry is left unmodified.
//
// It returns the crate numbers assigned, in file order.
func (s *Subsystem) ProcessDescriptionFile(r io.Reader) ([]int, error) {
	var created []bus.Interface
	rollback := func() {
		for _, i := range created {
			if err := i.Close(); err != nil {
				log.Printf("subsystem: closing %s during rollback: %v", i, err)
			}
		}
	}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := desc.Clean(sc.Text())
		if line == "" {
			continue
		}
		i, err := s.f.Create(line)
		if err != nil {
			rollback()
			return nil, &bus.DescriptionError{Line: n, Text: line, Err: err}
		}
		created = append(created, i)
	}
	if err := sc.Err(); err != nil {
		rollback()
		return nil, err
	}
	out := make([]int, 0, len(created))
	for _, i := range created {
		out = append(out, s.Install(i, Owned))
	}
	return out, nil
}

// LoadFile calls ProcessDescriptionFile on the file at path.
func (s *Subsystem) LoadFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.ProcessDescriptionFile(f)
}

