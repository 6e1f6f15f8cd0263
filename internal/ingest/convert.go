package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// FileType is the routing class of a file
type FileType string

const (
	FileTypePlain    FileType = "text/plain"
	FileTypeMarkdown FileType = "text/markdown"
	FileTypeHTML     FileType = "text/html"
	FileTypeUnknown  FileType = ""
)

var extensionTypes = map[string]FileType{
	".txt":      FileTypePlain,
	".text":     FileTypePlain,
	".md":       FileTypeMarkdown,
	".markdown": FileTypeMarkdown,
	".html":     FileTypeHTML,
	".htm":      FileTypeHTML,
}

// Classify routes a path by its extension
func Classify(path string) FileType {
	return extensionTypes[strings.ToLower(filepath.Ext(path))]
}

type document struct {
	Title string
	Text  string
}

var (
	mdHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdFence   = regexp.MustCompile("(?m)^```.*$")
	mdLink    = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdEmph    = regexp.MustCompile(`(\*\*|__|\*|_|~~|` + "`" + `)`)
)

func convert(path string, fileType FileType, data []byte) (document, error) {
	switch fileType {
	case FileTypePlain:
		return document{Text: string(data)}, nil
	case FileTypeMarkdown:
		return convertMarkdown(data), nil
	case FileTypeHTML:
		article, err := readability.FromReader(bytes.NewReader(data), &url.URL{Scheme: "file", Path: path})
		if err != nil {
			return document{}, fmt.Errorf("failed to extract readable content: %w", err)
		}
		return document{Title: article.Title, Text: article.TextContent}, nil
	default:
		return document{}, fmt.Errorf("unsupported file type for %s", path)
	}
}

func convertMarkdown(data []byte) document {
	text := string(data)

	var title string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}

	text = mdFence.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdEmph.ReplaceAllString(text, "")

	return document{Title: title, Text: text}
}
