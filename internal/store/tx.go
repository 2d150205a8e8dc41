package store

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/propmap/internal/textnorm"
)

type tableData struct {
	rows  []Row
	dirty bool
}

// Tx is an in-memory snapshot of all five tables, valid only inside the
// Update or View callback that received it.
type Tx struct {
	tables   [tableCount]*tableData
	writable bool
	onCommit []func()
}

// OnCommit registers fn to run once the transaction has been written.
// Callbacks run in registration order with the store lock still held, and
// are dropped if the transaction is rolled back.
func (tx *Tx) OnCommit(fn func()) {
	tx.onCommit = append(tx.onCommit, fn)
}

// Record is a Nodes or Relations row.
type Record struct {
	ID   int
	Text string
}

// Proposition is a Propositions row.
type Proposition struct {
	SourceID   int
	RelationID int
	TargetID   int
	Weight     string
}

func (p Proposition) row() Row {
	return Row{
		strconv.Itoa(p.SourceID),
		strconv.Itoa(p.RelationID),
		strconv.Itoa(p.TargetID),
		p.Weight,
	}
}

// Rows are validated on load, so conversion errors cannot occur here.
func parseProposition(r Row) Proposition {
	src, _ := strconv.Atoi(r[0])
	rel, _ := strconv.Atoi(r[1])
	tgt, _ := strconv.Atoi(r[2])
	return Proposition{SourceID: src, RelationID: rel, TargetID: tgt, Weight: r[3]}
}

func rowID(r Row) int {
	id, _ := strconv.Atoi(r[0])
	return id
}

func (tx *Tx) mutate(t Table) (*tableData, error) {
	if !tx.writable {
		return nil, ErrReadOnly
	}
	td := tx.tables[t]
	td.dirty = true
	return td, nil
}

func (tx *Tx) indexOf(t Table, id int) int {
	for i, r := range tx.tables[t].rows {
		if rowID(r) == id {
			return i
		}
	}
	return -1
}

func requireRecordTable(t Table) error {
	if !t.IsRecord() {
		return fmt.Errorf("%s is not a node or relation table", t)
	}
	return nil
}

// Len returns the number of data rows in t.
func (tx *Tx) Len(t Table) int {
	return len(tx.tables[t].rows)
}

// Rows returns a copy of every data row of t.
func (tx *Tx) Rows(t Table) []Row {
	rows := make([]Row, len(tx.tables[t].rows))
	for i, r := range tx.tables[t].rows {
		rows[i] = r.clone()
	}
	return rows
}

// Records returns the rows of a Nodes or Relations table.
func (tx *Tx) Records(t Table) []Record {
	if !t.IsRecord() {
		return nil
	}
	records := make([]Record, len(tx.tables[t].rows))
	for i, r := range tx.tables[t].rows {
		records[i] = Record{ID: rowID(r), Text: r[1]}
	}
	return records
}

// Record returns the record with the given id.
func (tx *Tx) Record(t Table, id int) (Record, bool) {
	if !t.IsRecord() {
		return Record{}, false
	}
	i := tx.indexOf(t, id)
	if i < 0 {
		return Record{}, false
	}
	return Record{ID: id, Text: tx.tables[t].rows[i][1]}, true
}

// Propositions returns every proposition in table order.
func (tx *Tx) Propositions() []Proposition {
	props := make([]Proposition, len(tx.tables[Propositions].rows))
	for i, r := range tx.tables[Propositions].rows {
		props[i] = parseProposition(r)
	}
	return props
}

// IDs returns the first column of every row of t.
func (tx *Tx) IDs(t Table) []int {
	ids := make([]int, len(tx.tables[t].rows))
	for i, r := range tx.tables[t].rows {
		ids[i] = rowID(r)
	}
	return ids
}

// Values returns the text column of a Nodes or Relations table.
func (tx *Tx) Values(t Table) []string {
	var values []string
	for _, rec := range tx.Records(t) {
		values = append(values, rec.Text)
	}
	return values
}

// StyleRow returns the style attributes of an element keyed by column.
// t may be a record table or its style table.
func (tx *Tx) StyleRow(t Table, id int) (map[string]string, bool) {
	if t.IsRecord() {
		t = t.StyleTable()
	}
	if !t.IsStyle() {
		return nil, false
	}
	i := tx.indexOf(t, id)
	if i < 0 {
		return nil, false
	}
	attrs := make(map[string]string, len(tableSpecs[t].columns))
	for c, col := range tableSpecs[t].columns {
		attrs[col] = tx.tables[t].rows[i][c]
	}
	return attrs, true
}

// LookupByNormalizedText finds the record whose text normalizes to the same
// value as text. Embedded justification markers never affect the match.
func (tx *Tx) LookupByNormalizedText(t Table, text string) (int, bool) {
	if !t.IsRecord() {
		return 0, false
	}
	key := textnorm.Normalize(text)
	for _, r := range tx.tables[t].rows {
		if textnorm.Normalize(r[1]) == key {
			return rowID(r), true
		}
	}
	return 0, false
}

// NextID returns max(id)+1, or 0 for an empty table. Ids are never reused
// while a higher id exists.
func (tx *Tx) NextID(t Table) int {
	next := 0
	for _, r := range tx.tables[t].rows {
		if id := rowID(r); id >= next {
			next = id + 1
		}
	}
	return next
}

// InsertRecord appends a node or relation and returns its new id.
func (tx *Tx) InsertRecord(t Table, text string) (int, error) {
	if err := requireRecordTable(t); err != nil {
		return 0, err
	}
	td, err := tx.mutate(t)
	if err != nil {
		return 0, err
	}
	id := tx.NextID(t)
	td.rows = append(td.rows, Row{strconv.Itoa(id), text})
	return id, nil
}

// InsertStyle appends a style row for an existing element.
func (tx *Tx) InsertStyle(t Table, row Row) error {
	if !t.IsStyle() {
		return fmt.Errorf("%s is not a style table", t)
	}
	if len(row) != len(tableSpecs[t].columns) {
		return fmt.Errorf("%s row has %d fields, want %d", t, len(row), len(tableSpecs[t].columns))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil || id < 0 {
		return fmt.Errorf("%s row id %q is not a non-negative integer", t, row[0])
	}
	if tx.indexOf(t, id) >= 0 {
		return &IntegrityError{Table: t, Reason: fmt.Sprintf("style row %d already exists", id)}
	}
	td, err := tx.mutate(t)
	if err != nil {
		return err
	}
	td.rows = append(td.rows, row.clone())
	return nil
}

// InsertProposition appends a proposition whose ids must all resolve.
// It returns the proposition's position.
func (tx *Tx) InsertProposition(p Proposition) (int, error) {
	if _, ok := tx.Record(Nodes, p.SourceID); !ok {
		return 0, &IntegrityError{Table: Propositions, Reason: fmt.Sprintf("unknown source node %d", p.SourceID)}
	}
	if _, ok := tx.Record(Relations, p.RelationID); !ok {
		return 0, &IntegrityError{Table: Propositions, Reason: fmt.Sprintf("unknown relation %d", p.RelationID)}
	}
	if _, ok := tx.Record(Nodes, p.TargetID); !ok {
		return 0, &IntegrityError{Table: Propositions, Reason: fmt.Sprintf("unknown target node %d", p.TargetID)}
	}
	if !isNumber(p.Weight) {
		return 0, fmt.Errorf("weight %q is not a number", p.Weight)
	}
	td, err := tx.mutate(Propositions)
	if err != nil {
		return 0, err
	}
	td.rows = append(td.rows, p.row())
	return len(td.rows) - 1, nil
}

// HasProposition reports whether an identical proposition exists.
func (tx *Tx) HasProposition(p Proposition) bool {
	want := p.row()
	for _, r := range tx.tables[Propositions].rows {
		if slices.Equal(r, want) {
			return true
		}
	}
	return false
}

// UpdateField replaces one field of the row with the given id. The id column
// cannot be updated; Propositions have no id and cannot be addressed here.
func (tx *Tx) UpdateField(t Table, id int, field, value string) error {
	if t == Propositions {
		return fmt.Errorf("%w: propositions are addressed by position", ErrUnknownField)
	}
	col := t.Column(field)
	if col <= 0 {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, t, field)
	}
	i := tx.indexOf(t, id)
	if i < 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, t, id)
	}
	td, err := tx.mutate(t)
	if err != nil {
		return err
	}
	td.rows[i][col] = value
	return nil
}

// Rename replaces the text of a node or relation in place, keeping its id,
// and mirrors the new text into the label of its style row.
func (tx *Tx) Rename(t Table, id int, text string) error {
	if err := requireRecordTable(t); err != nil {
		return err
	}
	if err := tx.UpdateField(t, id, t.Columns()[1], text); err != nil {
		return err
	}
	st := t.StyleTable()
	if tx.indexOf(st, id) < 0 {
		return nil
	}
	return tx.UpdateField(st, id, "label", text)
}

// SetWeight rewrites the weight of every proposition using relationID and
// returns how many were changed.
func (tx *Tx) SetWeight(relationID int, weight string) (int, error) {
	if !isNumber(weight) {
		return 0, fmt.Errorf("weight %q is not a number", weight)
	}
	td, err := tx.mutate(Propositions)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range td.rows {
		if parseProposition(r).RelationID == relationID {
			r[3] = weight
			n++
		}
	}
	return n, nil
}

// CascadeDelete removes the proposition at index, then deletes every node or
// relation it referenced that no remaining proposition references, together
// with its style row. A self-loop's node is examined once.
func (tx *Tx) CascadeDelete(index int) (Proposition, error) {
	props := tx.tables[Propositions]
	if index < 0 || index >= len(props.rows) {
		return Proposition{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(props.rows))
	}
	td, err := tx.mutate(Propositions)
	if err != nil {
		return Proposition{}, err
	}

	removed := parseProposition(td.rows[index])
	td.rows = slices.Delete(td.rows, index, index+1)

	nodes := []int{removed.SourceID}
	if removed.TargetID != removed.SourceID {
		nodes = append(nodes, removed.TargetID)
	}
	for _, id := range nodes {
		if !tx.nodeReferenced(id) {
			if err := tx.deleteElement(Nodes, id); err != nil {
				return Proposition{}, err
			}
		}
	}
	if !tx.relationReferenced(removed.RelationID) {
		if err := tx.deleteElement(Relations, removed.RelationID); err != nil {
			return Proposition{}, err
		}
	}
	return removed, nil
}

func (tx *Tx) nodeReferenced(id int) bool {
	for _, p := range tx.Propositions() {
		if p.SourceID == id || p.TargetID == id {
			return true
		}
	}
	return false
}

func (tx *Tx) relationReferenced(id int) bool {
	for _, p := range tx.Propositions() {
		if p.RelationID == id {
			return true
		}
	}
	return false
}

// deleteElement removes a record and its style row.
func (tx *Tx) deleteElement(t Table, id int) error {
	for _, target := range []Table{t, t.StyleTable()} {
		i := tx.indexOf(target, id)
		if i < 0 {
			continue
		}
		td, err := tx.mutate(target)
		if err != nil {
			return err
		}
		td.rows = slices.Delete(td.rows, i, i+1)
	}
	return nil
}

// SweepOrphans deletes every node and relation that no proposition
// references, with its style row, and returns how many were removed.
func (tx *Tx) SweepOrphans() (int, error) {
	n := 0
	for _, t := range []Table{Nodes, Relations} {
		for _, id := range tx.IDs(t) {
			referenced := tx.nodeReferenced(id)
			if t == Relations {
				referenced = tx.relationReferenced(id)
			}
			if referenced {
				continue
			}
			if err := tx.deleteElement(t, id); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// BulkRestyle assigns the given values to every existing row of a style
// table. The id and label columns cannot be restyled.
func (tx *Tx) BulkRestyle(t Table, fields map[string]string) error {
	if t.IsRecord() {
		t = t.StyleTable()
	}
	if !t.IsStyle() {
		return fmt.Errorf("%s is not a style table", t)
	}
	cols := make(map[int]string, len(fields))
	for field, value := range fields {
		col := t.Column(field)
		if col <= 0 || field == "label" {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, t, field)
		}
		cols[col] = value
	}
	if len(cols) == 0 {
		return nil
	}

	td, err := tx.mutate(t)
	if err != nil {
		return err
	}
	for _, r := range td.rows {
		for col, value := range cols {
			r[col] = value
		}
	}
	return nil
}

// RenormalizeAll re-applies the justification policy to every stored label:
// the text column of Nodes and Relations and the label column of both style
// tables.
func (tx *Tx) RenormalizeAll(budget int, mode textnorm.Justification) error {
	for _, t := range []Table{Nodes, Relations, NodeStyle, RelationStyle} {
		col := 1
		if t.IsStyle() {
			col = t.Column("label")
		}
		td, err := tx.mutate(t)
		if err != nil {
			return err
		}
		for _, r := range td.rows {
			r[col] = textnorm.Justify(r[col], budget, mode)
		}
	}
	return nil
}

// Reset empties every table.
func (tx *Tx) Reset() error {
	for _, t := range Tables() {
		td, err := tx.mutate(t)
		if err != nil {
			return err
		}
		td.rows = nil
	}
	return nil
}

// Verify checks the cross-table invariants: unique ids, resolvable
// proposition ids, and one style row per record carrying the record's text
// as label. Unreferenced records are not an error here; see SweepOrphans.
func (tx *Tx) Verify() error {
	for _, t := range []Table{Nodes, Relations, NodeStyle, RelationStyle} {
		seen := make(map[int]bool)
		for _, id := range tx.IDs(t) {
			if seen[id] {
				return &IntegrityError{Table: t, Reason: fmt.Sprintf("duplicate id %d", id)}
			}
			seen[id] = true
		}
	}

	for i, p := range tx.Propositions() {
		if _, ok := tx.Record(Nodes, p.SourceID); !ok {
			return &IntegrityError{Table: Propositions, Reason: fmt.Sprintf("row %d: unknown source node %d", i+1, p.SourceID)}
		}
		if _, ok := tx.Record(Relations, p.RelationID); !ok {
			return &IntegrityError{Table: Propositions, Reason: fmt.Sprintf("row %d: unknown relation %d", i+1, p.RelationID)}
		}
		if _, ok := tx.Record(Nodes, p.TargetID); !ok {
			return &IntegrityError{Table: Propositions, Reason: fmt.Sprintf("row %d: unknown target node %d", i+1, p.TargetID)}
		}
	}

	for _, t := range []Table{Nodes, Relations} {
		st := t.StyleTable()
		if tx.Len(st) != tx.Len(t) {
			return &IntegrityError{Table: st, Reason: fmt.Sprintf("%d style rows for %d records", tx.Len(st), tx.Len(t))}
		}
		labelCol := st.Column("label")
		for _, rec := range tx.Records(t) {
			i := tx.indexOf(st, rec.ID)
			if i < 0 {
				return &IntegrityError{Table: st, Reason: fmt.Sprintf("no style row for %d", rec.ID)}
			}
			if label := tx.tables[st].rows[i][labelCol]; label != rec.Text {
				return &IntegrityError{Table: st, Reason: fmt.Sprintf("label %q of %d does not match %q", label, rec.ID, rec.Text)}
			}
		}
	}
	return nil
}
