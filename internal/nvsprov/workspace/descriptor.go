package workspace

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultNamespace is the NVS namespace seeded into new descriptors.
const DefaultNamespace = "certs"

// descriptorHeader is the first line the NVS partition generator expects.
var descriptorHeader = []string{"key", "type", "encoding", "value"}

// Row is one line of the NVS partition generator CSV.
type Row struct {
	Key      string
	Type     string
	Encoding string
	Value    string
}

func (r Row) record() []string {
	return []string{r.Key, r.Type, r.Encoding, r.Value}
}

// NamespaceRow opens an NVS namespace; the rows after it belong to it.
func NamespaceRow(name string) Row {
	return Row{Key: name, Type: "namespace"}
}

// BaseRows are the namespace and credential file rows every descriptor starts with.
func BaseRows(namespace string, ws *Workspace) []Row {
	return []Row{
		NamespaceRow(namespace),
		{Key: "priv_key", Type: "file", Encoding: "string", Value: ws.KeyPath()},
		{Key: "certificate", Type: "file", Encoding: "string", Value: ws.CertPath()},
	}
}

// EncodeDescriptor renders rows as generator CSV, header included.
func EncodeDescriptor(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(descriptorHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return nil, fmt.Errorf("failed to encode descriptor row %q: %w", r.Key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadDescriptor parses an existing descriptor. A missing file yields no rows.
func ReadDescriptor(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}

	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if len(rec) == 0 || (i == 0 && rec[0] == descriptorHeader[0]) {
			continue
		}
		for len(rec) < 4 {
			rec = append(rec, "")
		}
		rows = append(rows, Row{Key: rec[0], Type: rec[1], Encoding: rec[2], Value: rec[3]})
	}
	return rows, nil
}

// LookupRow returns the first row with the given key.
func LookupRow(rows []Row, key string) (Row, bool) {
	for _, r := range rows {
		if r.Key == key && r.Type != "namespace" {
			return r, true
		}
	}
	return Row{}, false
}

// WriteDescriptor atomically replaces the descriptor at path.
func WriteDescriptor(path string, rows []Row) error {
	data, err := EncodeDescriptor(rows)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, filePerm)
}
