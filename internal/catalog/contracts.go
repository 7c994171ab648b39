package catalog

import "context"

// Entry is one property in the canonical catalog: id, canonical name, and
// the alias strings it is known to appear under in source documents.
// Read-only to this pipeline; the property-management service owns mutation.
type Entry struct {
	ID      int64
	Name    string
	Aliases []string
}

// Catalog lists the known properties. Implementations are read-only; the
// pipeline loads the list once per extraction run.
type Catalog interface {
	ListProperties(ctx context.Context) ([]Entry, error)
}

// Static is an in-memory catalog for tests and CLI runs.
type Static struct {
	Entries []Entry
}

func (s *Static) ListProperties(_ context.Context) ([]Entry, error) {
	return s.Entries, nil
}
