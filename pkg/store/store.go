// Package store declares the narrow interfaces the wizard core needs from its
// external backends: a tabular store (rows of named columns, first row is the
// header) and a hierarchical file store (folders of named children). Concrete
// clients live in internal/googleapi; tests use the in-memory fakes from
// pkg/testsupport.
package store

import "context"

// FolderMIMEType marks an entry as a folder in the file store.
const FolderMIMEType = "application/vnd.google-apps.folder"

// Tabular reads and appends rows in a spreadsheet-like store. Read returns
// rows in sheet order, header row included; Append adds rows after the last
// populated row of the range.
type Tabular interface {
	Read(ctx context.Context, tableID, readRange string) ([][]string, error)
	Append(ctx context.Context, tableID, writeRange string, rows [][]string) error
}

// Entry is one child of a file-store folder.
type Entry struct {
	ID       string
	Name     string
	MIMEType string
}

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool {
	return e.MIMEType == FolderMIMEType
}

// Files exposes the file-store operations the provisioner and submission
// pipeline depend on. ListChildren filters by exact name when name is
// non-empty and returns entries in the store's own listing order; that order
// is what makes duplicate resolution deterministic.
type Files interface {
	ListChildren(ctx context.Context, parentID, name string) ([]Entry, error)
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
	Upload(ctx context.Context, parentID, name string, data []byte, mimeType string) (string, error)
}
