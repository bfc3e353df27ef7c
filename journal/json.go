package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSON encodes r as an indented JSON document.
func WriteJSON(w io.Writer, r Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(rd io.Reader) (Run, error) {
	var r Run
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return Run{}, fmt.Errorf("decode run: %w", err)
	}
	return r, nil
}

func writeJSONFile(path string, r Run) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(fh, r); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
