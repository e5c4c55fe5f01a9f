package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	diskdrv "github.com/ehrlich-b/go-diskdrv"
)

// requestSpec is one request given on the command line, before its buffer
// is allocated
type requestSpec struct {
	Op    diskdrv.Operation
	ID    int
	Block int
	Size  int
}

// parseRequest parses "op:id:block:size". op is read, write, r, w or a
// raw operation number; raw numbers let invalid operations through to the
// validator.
func parseRequest(s string) (requestSpec, error) {
	fields := strings.Split(strings.TrimSpace(s), ":")
	if len(fields) != 4 {
		return requestSpec{}, fmt.Errorf("request %q: want op:id:block:size", s)
	}

	var spec requestSpec
	switch strings.ToLower(fields[0]) {
	case "r", "read":
		spec.Op = diskdrv.OpRead
	case "w", "write":
		spec.Op = diskdrv.OpWrite
	default:
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return requestSpec{}, fmt.Errorf("request %q: unknown operation %q", s, fields[0])
		}
		if n == 0 {
			return requestSpec{}, fmt.Errorf("request %q: operation 0 marks an empty slot", s)
		}
		spec.Op = diskdrv.Operation(n)
	}

	ints := []*int{&spec.ID, &spec.Block, &spec.Size}
	for i, p := range ints {
		n, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return requestSpec{}, fmt.Errorf("request %q: field %d: %w", s, i+2, err)
		}
		*p = n
	}
	return spec, nil
}

// readRequests parses one request per line. Blank lines and lines starting
// with # are skipped.
func readRequests(r io.Reader) ([]requestSpec, error) {
	var specs []requestSpec
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		spec, err := parseRequest(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		specs = append(specs, spec)
	}
	return specs, scanner.Err()
}

// requestList is a repeatable --req flag
type requestList []requestSpec

func (l *requestList) String() string {
	parts := make([]string, len(*l))
	for i, s := range *l {
		parts[i] = fmt.Sprintf("%d:%d:%d:%d", int(s.Op), s.ID, s.Block, s.Size)
	}
	return strings.Join(parts, ",")
}

func (l *requestList) Set(v string) error {
	spec, err := parseRequest(v)
	if err != nil {
		return err
	}
	*l = append(*l, spec)
	return nil
}

func (l *requestList) Type() string {
	return "op:id:block:size"
}

var _ pflag.Value = (*requestList)(nil)
