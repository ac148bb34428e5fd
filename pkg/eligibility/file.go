package eligibility

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// FileSource reads a raw eligibility payload from a JSON file. Used by
// the import command and for replaying saved clearinghouse responses.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source backed by the given JSON file.
func NewFileSource(path string) FileSource {
	return FileSource{Path: path}
}

// Check ignores the request and returns the file's contents.
func (f FileSource) Check(_ context.Context, _ CheckRequest) (map[string]any, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, eris.Wrap(err, "eligibility: read payload file")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "eligibility: decode payload file")
	}
	return raw, nil
}
