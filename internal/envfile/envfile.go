// Package envfile bootstraps the project dotenv file from its example.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// Bootstrap copies example to path unless path already exists. It returns
// true when the file was created. A missing example file is an error only
// when the copy is actually needed.
func Bootstrap(path, example string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("envfile: stat %s: %w", path, err)
	}

	data, err := os.ReadFile(example)
	if err != nil {
		return false, fmt.Errorf("envfile: read example: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("envfile: write %s: %w", path, err)
	}
	return true, nil
}

// Lint parses the dotenv file and returns the keys whose values are empty,
// sorted for stable output.
func Lint(path string) ([]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("envfile: parse %s: %w", path, err)
	}
	var empty []string
	for k, v := range vars {
		if v == "" {
			empty = append(empty, k)
		}
	}
	sort.Strings(empty)
	return empty, nil
}
