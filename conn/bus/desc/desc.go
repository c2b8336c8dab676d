// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package desc parses interface description lines.
//
// A description file holds one interface per line. Leading and trailing
// blanks are ignored, '#' starts a comment running to the end of the line and
// empty lines are skipped. A line is:
//
//  <type> <configuration>
//
// where type is the first blank delimited word and configuration is the rest
// of the line with its leading blanks removed. The configuration is free text
// interpreted only by the creator registered for type; Options() is provided
// for creators that use the usual key=value form.
package desc

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

const blanks = " \t\r\n\v\f"

// StripComment returns line up to, excluding, the first '#'.
func StripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// TrimLeading removes the leading blanks.
func TrimLeading(line string) string {
	return strings.TrimLeft(line, blanks)
}

// TrimTrailing removes the trailing blanks.
func TrimTrailing(line string) string {
	return strings.TrimRight(line, blanks)
}

// TrimBlanks removes both leading and trailing blanks.
func TrimBlanks(line string) string {
	return strings.Trim(line, blanks)
}

// Clean strips the comment then the surrounding blanks.
func Clean(line string) string {
	return TrimBlanks(StripComment(line))
}

// FirstWord returns the characters up to the first blank.
//
// Leading blanks are not skipped: the first word of "  foo" is "". Trim the
// line first.
func FirstWord(line string) string {
	if i := strings.IndexAny(line, blanks); i >= 0 {
		return line[:i]
	}
	return line
}

// Split splits a cleaned description line in its type tag and configuration.
//
// The configuration is everything after the type with its leading blanks
// removed; the rest is passed through uninterpreted.
func Split(line string) (string, string) {
	t := FirstWord(line)
	return t, TrimLeading(line[len(t):])
}

// Options tokenizes a configuration with shell quoting rules.
//
// Tokens of the form key=value are returned in opts, the others in args, in
// order. A key specified twice is an error.
func Options(configuration string) (map[string]string, []string, error) {
	words, err := shlex.Split(configuration)
	if err != nil {
		return nil, nil, errors.New("desc: " + err.Error())
	}
	opts := map[string]string{}
	var args []string
	for _, w := range words {
		i := strings.IndexByte(w, '=')
		if i <= 0 {
			args = append(args, w)
			continue
		}
		k := w[:i]
		if _, ok := opts[k]; ok {
			return nil, nil, errors.New("desc: option " + strconv.Quote(k) + " specified twice")
		}
		opts[k] = w[i+1:]
	}
	return opts, args, nil
}

// Values is like Options but permits repeating keys.
//
// It is used for options that describe a list, for example memory windows.
func Values(configuration string) (map[string][]string, []string, error) {
	words, err := shlex.Split(configuration)
	if err != nil {
		return nil, nil, errors.New("desc: " + err.Error())
	}
	opts := map[string][]string{}
	var args []string
	for _, w := range words {
		i := strings.IndexByte(w, '=')
		if i <= 0 {
			args = append(args, w)
			continue
		}
		opts[w[:i]] = append(opts[w[:i]], w[i+1:])
	}
	return opts, args, nil
}

// ParseUint parses an unsigned number of at most bits bits.
//
// The 0x, 0o and 0b prefixes and '_' separators are accepted.
func ParseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		if e, ok := err.(*strconv.NumError); ok {
			return 0, errors.New("desc: invalid number " + strconv.Quote(s) + ": " + e.Err.Error())
		}
		return 0, err
	}
	return v, nil
}

// ParseBool parses on/off, yes/no and the values accepted by
// strconv.ParseBool.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New("desc: invalid boolean " + strconv.Quote(s))
	}
	return b, nil
}

// Fields splits a colon separated option value in exactly n parts.
func Fields(s string, n int) ([]string, error) {
	p := strings.Split(s, ":")
	if len(p) != n {
		return nil, errors.New("desc: " + strconv.Quote(s) + " must have " + strconv.Itoa(n) + " colon separated fields")
	}
	return p, nil
}
