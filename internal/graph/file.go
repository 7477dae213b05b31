package graph

import (
	"os"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", engineerr.Wrap(engineerr.IO, "graph.readFile", "cannot read "+path, err)
	}
	return string(b), nil
}
