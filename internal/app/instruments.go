package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"bars-archive/internal/provider"
	"bars-archive/internal/provider/dukascopy"
)

// Sources of instrument rows.
const (
	SourceDukascopy = dukascopy.Name
	SourceExchange  = provider.ExchangeNamespace
)

// Instrument is one row of the instruments file.
type Instrument struct {
	Name       string // trading name used for filtering and logs
	Source     string // dukascopy | ccxt
	DataSymbol string // symbol in the source's own notation
	Exchange   string // ccxt rows only
	PriceScale float64
}

// Key returns the storage key of the instrument.
func (i Instrument) Key() string {
	if i.Source == SourceExchange {
		return provider.ExchangeKey(i.DataSymbol, i.Exchange)
	}
	return dukascopy.Key(i.DataSymbol)
}

// LoadInstruments reads the instruments CSV. Two header layouts are accepted:
//   - ftmo_symbol, source, data_symbol[, exchange][, price_scale]
//   - symbol, source[, exchange][, price_scale] (symbol is used for both names)
//
// Rows with an empty name, source or data symbol are skipped. An empty exchange
// defaults to binance.
func LoadInstruments(path string) ([]Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instruments %s: %w", path, err)
	}
	defer f.Close()

	list, err := parseInstruments(f)
	if err != nil {
		return nil, fmt.Errorf("instruments %s: %w", path, err)
	}
	slog.Info("loaded instruments", "count", len(list), "path", path)
	return list, nil
}

func parseInstruments(r io.Reader) ([]Instrument, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	nameCol, dataCol := "ftmo_symbol", "data_symbol"
	_, hasNew := cols["ftmo_symbol"]
	_, hasData := cols["data_symbol"]
	_, hasSource := cols["source"]
	_, hasSymbol := cols["symbol"]
	switch {
	case hasNew && hasData && hasSource:
	case hasSymbol && hasSource:
		nameCol, dataCol = "symbol", "symbol"
	default:
		return nil, errors.New("invalid header: want ftmo_symbol,source,data_symbol[,exchange][,price_scale] or symbol,source[,exchange][,price_scale]")
	}

	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var list []Instrument
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		in := Instrument{
			Name:       get(rec, nameCol),
			Source:     strings.ToLower(get(rec, "source")),
			DataSymbol: get(rec, dataCol),
			Exchange:   get(rec, "exchange"),
		}
		if in.Name == "" || in.Source == "" || in.DataSymbol == "" {
			continue
		}
		if in.Exchange == "" {
			in.Exchange = provider.DefaultExchange
		}
		if s := get(rec, "price_scale"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || v <= 0 {
				return nil, fmt.Errorf("line %d: invalid price_scale %q", line, s)
			}
			in.PriceScale = v
		}
		list = append(list, in)
	}
	return list, nil
}

// Selection narrows the instrument list.
type Selection struct {
	Only   string         // keep a single source when set
	Filter *regexp.Regexp // matched against Instrument.Name when set
}

// Match reports whether in passes the selection.
func (s Selection) Match(in Instrument) bool {
	if s.Only != "" && in.Source != s.Only {
		return false
	}
	if s.Filter != nil && !s.Filter.MatchString(in.Name) {
		return false
	}
	return true
}
