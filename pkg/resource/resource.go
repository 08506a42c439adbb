// Package resource shapes models into the JSON a client sees, keeping
// response layout out of the models themselves:
//
//	var InvoiceRow resource.Transformer[models.Invoice] = func(inv models.Invoice) resource.Map {
//	    return resource.Map{"id": inv.ID, "invoice_no": inv.InvoiceNo}
//	}
//
//	c.Success(resource.One(InvoiceRow, invoice))
//	c.Paginated(resource.Many(InvoiceRow, invoices), page)
package resource

import "github.com/shashiranjanraj/billbook/pkg/collection"

// Map is a convenient alias for a transformed record.
type Map = map[string]interface{}

// Transformer converts one value into its response shape.
type Transformer[T any] func(T) Map

// One transforms a single value. A nil pointer yields nil so it encodes as
// JSON null.
func One[T any](t Transformer[T], v *T) Map {
	if v == nil {
		return nil
	}
	return t(*v)
}

// Many transforms a slice. The result is never nil so it encodes as [].
func Many[T any](t Transformer[T], items []T) []Map {
	if len(items) == 0 {
		return []Map{}
	}
	return collection.Map(items, func(v T) Map { return t(v) })
}

// With merges extra into a copy of m.
func With(m Map, extra Map) Map {
	out := make(Map, len(m)+len(extra))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
