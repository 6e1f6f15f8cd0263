package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PathTranslator maps a folder path as the client sees it onto a path this process can read
type PathTranslator func(folderPath, homeDir string) (string, error)

// HostMountTranslator expands a leading ~ to homeDir and, when mount is set, rewrites the
// homeDir prefix onto mount (the host home directory mounted into the container)
func HostMountTranslator(mount string) PathTranslator {
	return func(folderPath, homeDir string) (string, error) {
		if folderPath == "" {
			return "", fmt.Errorf("folder path is empty")
		}

		path := folderPath
		if path == "~" || strings.HasPrefix(path, "~/") {
			home := homeDir
			if home == "" {
				h, err := os.UserHomeDir()
				if err != nil {
					return "", fmt.Errorf("failed to expand ~: %w", err)
				}
				home = h
			}
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		path = filepath.Clean(path)

		if mount != "" && homeDir != "" {
			home := filepath.Clean(homeDir)
			if rel, ok := underDir(path, home); ok {
				path = filepath.Join(mount, rel)
			}
		}

		return filepath.Abs(path)
	}
}

// IdentityTranslator returns folder paths unchanged apart from cleaning
func IdentityTranslator(folderPath, _ string) (string, error) {
	if folderPath == "" {
		return "", fmt.Errorf("folder path is empty")
	}
	return filepath.Abs(folderPath)
}

func underDir(path, dir string) (string, bool) {
	if path == dir {
		return ".", true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	return strings.TrimPrefix(path, prefix), true
}

// ListFiles returns the regular files under root in lexical order. Hidden files and
// directories are skipped.
func ListFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
