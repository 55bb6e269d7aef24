package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// write prints v as indented JSON, or text as-is, depending on --format.
func write(w io.Writer, opts *RootOptions, v any, text string) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
