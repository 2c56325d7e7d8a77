package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// FileReader decodes one T from the file named by its --file flag. "-"
// reads stdin, which must then be piped rather than a terminal.
type FileReader[T any] struct {
	path string
	// stdin replaces os.Stdin in tests.
	stdin io.Reader
}

// Flag returns the --file flag bound to the reader.
func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "read the JSON payload from a file (- reads piped stdin)",
		Destination: &fr.path,
	}
}

// Set reports whether --file was given.
func (fr *FileReader[T]) Set() bool { return fr.path != "" }

// Read decodes the payload. Unknown fields and trailing data are errors, so
// a typo in a payload file is reported instead of silently ignored.
func (fr *FileReader[T]) Read() (T, error) {
	var zero T
	r, closeFn, err := fr.open()
	if err != nil {
		return zero, err
	}
	defer closeFn()

	v, err := decodeStrict[T](r)
	if err != nil {
		return zero, fmt.Errorf("decode %s: %w", fr.name(), err)
	}
	return v, nil
}

func (fr *FileReader[T]) name() string {
	if fr.path == "" || fr.path == "-" {
		return "stdin"
	}
	return fr.path
}

func (fr *FileReader[T]) open() (io.Reader, func(), error) {
	if fr.path != "" && fr.path != "-" {
		f, err := os.Open(fr.path)
		if err != nil {
			return nil, nil, fmt.Errorf("open payload: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}

	in := fr.stdin
	if in == nil {
		in = os.Stdin
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, nil, errors.New("no input: stdin is a terminal; pass --file PATH or pipe JSON")
	}
	return in, func() {}, nil
}

func decodeStrict[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if dec.More() {
		return v, errors.New("unexpected data after the JSON value")
	}
	return v, nil
}
