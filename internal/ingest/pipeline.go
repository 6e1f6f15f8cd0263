package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/content"
)

// Options tune the splitter stage
type Options struct {
	ChunkWords   int
	ChunkOverlap int
}

// Pipeline routes a file by type, converts and cleans it, splits it into word windows
// and writes the windows to the content store tagged with the file path
type Pipeline struct {
	settings Settings
	opts     Options
	store    content.Store
	logger   *logrus.Logger
}

func NewPipeline(settings Settings, opts Options, store content.Store, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		settings: settings,
		opts:     opts,
		store:    store,
		logger:   logger,
	}
}

// Ingest implements Ingester
func (p *Pipeline) Ingest(ctx context.Context, path string) (Result, error) {
	fileType := Classify(path)
	if fileType == FileTypeUnknown {
		p.logger.WithField("file", path).Debug("Unclassified file type, skipping")
		return Result{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := convert(path, fileType, data)
	if err != nil {
		return Result{}, err
	}

	chunks := splitWords(clean(doc.Text), p.opts.ChunkWords, p.opts.ChunkOverlap)
	if len(chunks) == 0 {
		// The file may have had content on an earlier sync
		if _, err := p.store.DeleteBySource(ctx, []string{path}); err != nil {
			return Result{}, err
		}
		return Result{}, nil
	}

	records := make([]content.Chunk, len(chunks))
	for i, body := range chunks {
		records[i] = content.Chunk{
			SourceFile: path,
			Index:      i,
			Title:      doc.Title,
			Body:       body,
		}
	}

	written, err := p.store.Write(ctx, records)
	if err != nil {
		return Result{}, err
	}

	p.logger.WithFields(logrus.Fields{
		"file":     path,
		"type":     string(fileType),
		"chunks":   written,
		"provider": p.settings.Provider,
	}).Debug("Ingested file")

	return Result{Written: written}, nil
}
