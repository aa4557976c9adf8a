package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Header names the six columns of the history file.
var Header = []string{"Date", "Heure", "Type", "Nom", "Places_Libres", "Places_Totales"}

// Key identifies an entity within one timestamp.
type Key struct {
	Type string
	Name string
}

// Store reads and appends the semicolon-delimited history file. The file is
// append-only; rows are never rewritten.
type Store struct {
	path string
}

// NewStore creates a store for the given history file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the underlying file path.
func (s *Store) Path() string {
	return s.path
}

// ReadAll loads the full history in file order. A missing file yields an
// empty history, not an error.
func (s *Store) ReadAll() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	var records []Record
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		if first {
			first = false
			continue // header
		}
		if len(row) < 6 {
			continue
		}
		records = append(records, Record{
			Date:  strings.TrimSpace(row[0]),
			Clock: strings.TrimSpace(row[1]),
			Type:  strings.TrimSpace(row[2]),
			Name:  strings.TrimSpace(row[3]),
			Free:  strings.TrimSpace(row[4]),
			Total: strings.TrimSpace(row[5]),
		})
	}
	return records, nil
}

// Append adds rows to the history, writing the header first when the file
// does not exist yet.
func (s *Store) Append(rows []Record) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	_, statErr := os.Stat(s.path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if isNew {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Date, r.Clock, r.Type, r.Name, r.Free, r.Total}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// KeysAt returns the (type, name) pairs already recorded at the given
// date/clock, used to avoid duplicate appends within one timestamp.
func (s *Store) KeysAt(date, clock string) (map[Key]struct{}, error) {
	records, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	keys := make(map[Key]struct{})
	for _, r := range records {
		if r.Date == date && r.Clock == clock && r.Type != "" && r.Name != "" {
			keys[Key{Type: r.Type, Name: r.Name}] = struct{}{}
		}
	}
	return keys, nil
}
