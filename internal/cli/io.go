/*
Copyright © 2025 Logicos Software

io.go implements the "-" stdio convention shared by every command that
reads or writes a file: a path of "-" means stdin (for input) or stdout
(for output); anything else is a filesystem path written atomically.
*/
package cli

import (
	"io"
	"os"

	"ssops/internal/atomicfile"
	"ssops/internal/errs"
)

func readInput(path string) ([]byte, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errs.Wrap(errs.KindIoFailure, "read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "read "+path, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" || path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return errs.Wrap(errs.KindIoFailure, "write stdout", err)
		}
		return nil
	}
	return atomicfile.WriteFile(path, data, true)
}
