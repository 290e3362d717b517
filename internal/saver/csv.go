package saver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"bars-archive/internal/model"
)

var csvHeader = []string{"t", "o", "h", "l", "c", "v"}

// CSVCodec stores bars as CSV (header: t,o,h,l,c,v).
type CSVCodec struct{}

func (CSVCodec) Extension() string { return "csv" }

func (CSVCodec) Save(bars model.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			strconv.FormatInt(b.Timestamp, 10),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
		}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (CSVCodec) Load(path string) (model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var bars model.Series
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		b, err := parseCSVRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseCSVRecord(rec []string) (model.Bar, error) {
	var b model.Bar
	ts, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return b, err
	}
	b.Timestamp = ts
	fields := []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return b, err
		}
		*dst = v
	}
	return b, nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
