package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/types"
)

var readFileDecl = types.ToolDeclaration{
	Name:        "read_file",
	Description: "Read the contents of a file",
	Parameters: object(map[string]*types.Schema{
		"path": {Type: types.TypeString, Description: "The file path to read from, relative to the working directory"},
	}, "path"),
}

// readFile reads files below root only. os.Root rejects absolute paths,
// ".." escapes and symlinks leaving the tree.
func readFile(root string, maxBytes int64) tools.Handler {
	return func(_ context.Context, _ string, args map[string]any) (any, error) {
		path := stringArg(args, "path")
		if path == "" {
			return nil, errors.New("path is empty")
		}

		dir, err := os.OpenRoot(root)
		if err != nil {
			return nil, fmt.Errorf("open read root: %w", err)
		}
		defer dir.Close()

		f, err := dir.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %s: %w", path, err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}

		data, err := io.ReadAll(io.LimitReader(f, maxBytes))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		return map[string]any{
			"path":         path,
			"content":      string(data),
			"size":         info.Size(),
			"truncated":    info.Size() > maxBytes,
			"lastModified": info.ModTime().UTC().Format(time.RFC3339),
		}, nil
	}
}
