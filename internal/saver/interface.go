package saver

import (
	"fmt"
	"strings"

	"bars-archive/internal/model"
)

// Codec persists and reloads a whole bar series as one file.
// The store picks the implementation; callers only depend on the interface.
type Codec interface {
	Save(bars model.Series, path string) error
	Load(path string) (model.Series, error)
	Extension() string
}

// Formats lists the supported SAVE_FORMAT values.
var Formats = []string{"csv", "json", "parquet"}

// NewCodec creates the implementation for format (csv, parquet, json).
func NewCodec(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVCodec{}, nil
	case "parquet":
		return ParquetCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported save format %q (use: %s)", format, strings.Join(Formats, ", "))
	}
}
