package saver

import (
	"github.com/parquet-go/parquet-go"

	"bars-archive/internal/model"
)

// ParquetCodec stores bars as a Parquet file.
type ParquetCodec struct{}

func (ParquetCodec) Extension() string { return "parquet" }

func (ParquetCodec) Save(bars model.Series, path string) error {
	return parquet.WriteFile(path, []model.Bar(bars))
}

func (ParquetCodec) Load(path string) (model.Series, error) {
	rows, err := parquet.ReadFile[model.Bar](path)
	if err != nil {
		return nil, err
	}
	return model.Series(rows), nil
}
