package dataset

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Dataset is a two-dimensional array of records with named float64 fields.
// A row holds cols records laid out record-major: the value of field f at
// column j sits at index j*len(fields)+f. Rows are written and read in
// half-open ranges so callers can stream large arrays chunk by chunk.
type Dataset struct {
	store  *Store
	id     int64
	name   string
	rows   int
	cols   int
	fields []string
}

// CreateDataset creates a dataset under the group with a fixed shape and
// field list. The shape and fields are immutable afterwards.
func (g *Group) CreateDataset(name string, rows, cols int, fields []string) (*Dataset, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("create dataset %q: shape (%d, %d) not positive", name, rows, cols)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("create dataset %q: no fields", name)
	}
	for _, f := range fields {
		if strings.Contains(f, ",") {
			return nil, fmt.Errorf("create dataset %q: field name %q contains a comma", name, f)
		}
	}
	res, err := g.store.db.Exec(`
		INSERT INTO datasets (group_id, name, rows, cols, fields) VALUES (?, ?, ?, ?, ?)
	`, g.id, name, rows, cols, strings.Join(fields, ","))
	if err != nil {
		return nil, fmt.Errorf("create dataset %q under %s: %w", name, g.path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create dataset %q: %w", name, err)
	}
	return &Dataset{store: g.store, id: id, name: name, rows: rows, cols: cols, fields: append([]string(nil), fields...)}, nil
}

// Dataset opens a dataset under the group by name.
func (g *Group) Dataset(name string) (*Dataset, error) {
	var id int64
	var rows, cols int
	var fieldList string
	err := g.store.db.QueryRow(`
		SELECT id, rows, cols, fields FROM datasets WHERE group_id = ? AND name = ?
	`, g.id, name).Scan(&id, &rows, &cols, &fieldList)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %q under %s: %w", name, g.path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query dataset %q: %w", name, err)
	}
	return &Dataset{store: g.store, id: id, name: name, rows: rows, cols: cols, fields: strings.Split(fieldList, ",")}, nil
}

// Datasets returns all datasets under the group ordered by name.
func (g *Group) Datasets() ([]*Dataset, error) {
	rows, err := g.store.db.Query(`SELECT name FROM datasets WHERE group_id = ? ORDER BY name ASC`, g.id)
	if err != nil {
		return nil, fmt.Errorf("query datasets of %s: %w", g.path, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dataset name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sets := make([]*Dataset, 0, len(names))
	for _, name := range names {
		d, err := g.Dataset(name)
		if err != nil {
			return nil, err
		}
		sets = append(sets, d)
	}
	return sets, nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Rows returns the number of rows in the dataset shape.
func (d *Dataset) Rows() int { return d.rows }

// Cols returns the number of columns in the dataset shape.
func (d *Dataset) Cols() int { return d.cols }

// Fields returns the per-record field names in storage order.
func (d *Dataset) Fields() []string {
	return append([]string(nil), d.fields...)
}

// FieldIndex returns the position of a field name, or -1 if absent.
func (d *Dataset) FieldIndex(name string) int {
	for i, f := range d.fields {
		if f == name {
			return i
		}
	}
	return -1
}

// rowLen is the number of float64 values per row.
func (d *Dataset) rowLen() int {
	return d.cols * len(d.fields)
}

// WriteRows writes consecutive rows starting at row index start. Each row
// must contain exactly cols*len(fields) values. Rewriting a range with the
// same values leaves the store unchanged.
func (d *Dataset) WriteRows(start int, data [][]float64) error {
	if start < 0 || start+len(data) > d.rows {
		return fmt.Errorf("write %s rows [%d, %d): out of range [0, %d)", d.name, start, start+len(data), d.rows)
	}
	want := d.rowLen()

	tx, err := d.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin write to %s: %w", d.name, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO dataset_rows (dataset_id, row, data) VALUES (?, ?, ?)
		ON CONFLICT (dataset_id, row) DO UPDATE SET data = excluded.data
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare write to %s: %w", d.name, err)
	}
	defer stmt.Close()

	for i, row := range data {
		if len(row) != want {
			tx.Rollback()
			return fmt.Errorf("write %s row %d: got %d values, want %d", d.name, start+i, len(row), want)
		}
		if _, err := stmt.Exec(d.id, start+i, d.encodeRow(row)); err != nil {
			tx.Rollback()
			return fmt.Errorf("write %s row %d: %w", d.name, start+i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write to %s: %w", d.name, err)
	}
	return nil
}

// ReadRows reads the half-open row range [start, end). Rows never written
// come back zero-filled, matching the zero-initialized layout the dataset is
// created with.
func (d *Dataset) ReadRows(start, end int) ([][]float64, error) {
	if start < 0 || end > d.rows || start > end {
		return nil, fmt.Errorf("read %s rows [%d, %d): out of range [0, %d)", d.name, start, end, d.rows)
	}
	want := d.rowLen()
	out := make([][]float64, end-start)
	for i := range out {
		out[i] = make([]float64, want)
	}

	rows, err := d.store.db.Query(`
		SELECT row, data FROM dataset_rows WHERE dataset_id = ? AND row >= ? AND row < ? ORDER BY row ASC
	`, d.id, start, end)
	if err != nil {
		return nil, fmt.Errorf("read %s rows [%d, %d): %w", d.name, start, end, err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		var blob []byte
		if err := rows.Scan(&idx, &blob); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", d.name, err)
		}
		vals, err := d.decodeRow(blob)
		if err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", d.name, idx, err)
		}
		out[idx-start] = vals
	}
	return out, rows.Err()
}

// ReadRow reads a single row.
func (d *Dataset) ReadRow(row int) ([]float64, error) {
	rows, err := d.ReadRows(row, row+1)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (d *Dataset) encodeRow(vals []float64) []byte {
	raw := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return d.store.enc.EncodeAll(raw, nil)
}

func (d *Dataset) decodeRow(blob []byte) ([]float64, error) {
	raw, err := d.store.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if len(raw) != 8*d.rowLen() {
		return nil, fmt.Errorf("blob holds %d bytes, want %d", len(raw), 8*d.rowLen())
	}
	vals := make([]float64, d.rowLen())
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return vals, nil
}
