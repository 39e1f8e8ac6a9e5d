package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/joseph-ayodele/docu-prompt-engine/db/ent/schema"
)

const documentsTable = "documents"

// DocumentsTable derives the documents table from the Ent schema fields.
func DocumentsTable() (*schema.Table, error) {
	t := schema.NewTable(documentsTable)
	for _, f := range (entschema.Document{}).Fields() {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("field %s: %w", d.Name, d.Err)
		}
		col := &schema.Column{
			Name:       d.Name,
			Type:       d.Info.Type,
			Nullable:   d.Optional,
			Size:       int64(d.Size),
			SchemaType: d.SchemaType,
		}
		if col.Type == field.TypeString && col.Size == 0 {
			col.Size = schema.DefaultStringLen
		}
		if d.Name == "id" {
			t.AddPrimary(col)
			continue
		}
		t.AddColumn(col)
	}
	for _, idx := range (entschema.Document{}).Indexes() {
		d := idx.Descriptor()
		t.AddIndex(documentsTable+"_"+d.Fields[0], d.Unique, d.Fields)
	}
	return t, nil
}

// Migrate creates or updates the documents table.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	t, err := DocumentsTable()
	if err != nil {
		return err
	}
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Create(ctx, t); err != nil {
		return fmt.Errorf("migrate: create %s: %w", documentsTable, err)
	}
	return nil
}
