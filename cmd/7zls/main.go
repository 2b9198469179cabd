// Command 7zls lists, and optionally extracts, the entries of a 7-zip
// archive.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go7z/sevenzip"
)

func main() {
	var (
		password = flag.String("p", "", "password for encrypted archives")
		extract  = flag.String("x", "", "name of a single entry to extract to stdout")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-p password] [-x entry] archive.7z\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *password, *extract); err != nil {
		log.Fatal(err)
	}
}

func run(archive, password, extract string) error {
	r, err := sevenzip.OpenReaderWithPassword(archive, password)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archive, err)
	}
	defer r.Close()

	if extract != "" {
		return extractEntry(r, extract)
	}

	for _, f := range r.File {
		kind := '-'

		switch {
		case f.FileInfo().IsDir():
			kind = 'd'
		case f.Mode()&os.ModeSymlink != 0:
			kind = 'l'
		}

		fmt.Printf("%c %10d %s %s\n", kind, f.UncompressedSize, f.Modified.Format("2006-01-02 15:04:05"), f.Name)
	}

	return nil
}

func extractEntry(r *sevenzip.ReadCloser, name string) error {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()

		if _, err := io.Copy(os.Stdout, rc); err != nil {
			return fmt.Errorf("extracting %s: %w", name, err)
		}

		return nil
	}

	return fmt.Errorf("%s: %w", name, errEntryNotFound)
}

var errEntryNotFound = errors.New("entry not found in archive")
