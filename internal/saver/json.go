package saver

import (
	"encoding/json"
	"os"

	"bars-archive/internal/model"
)

// JSONCodec stores bars as an indented JSON array.
type JSONCodec struct{}

func (JSONCodec) Extension() string { return "json" }

func (JSONCodec) Save(bars model.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bars); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (JSONCodec) Load(path string) (model.Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars model.Series
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}
