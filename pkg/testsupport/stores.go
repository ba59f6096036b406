// Package testsupport provides in-memory doubles for the external tabular and
// file stores so component tests can run without network access or real
// credentials.
package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-fieldvisit/pkg/store"
)

// FakeTabular is an in-memory store.Tabular. Sheets are keyed by
// "tableID|range"; Append records rows under the same key so tests can assert
// on exactly what was written.
type FakeTabular struct {
	mu sync.Mutex

	Sheets   map[string][][]string
	Appended map[string][][]string

	// ReadErr and AppendErr, when set, are returned by every matching call.
	ReadErr   error
	AppendErr error

	// FailAppendsBefore fails the first n Append calls with AppendErr (or a
	// transient error when AppendErr is nil), then lets calls through. Used to
	// exercise retry-after-failure paths.
	FailAppendsBefore int

	ReadCalls   int
	AppendCalls int
}

// NewFakeTabular seeds a fake with the provided sheets.
func NewFakeTabular(sheets map[string][][]string) *FakeTabular {
	if sheets == nil {
		sheets = make(map[string][][]string)
	}
	return &FakeTabular{
		Sheets:   sheets,
		Appended: make(map[string][][]string),
	}
}

func sheetKey(tableID, rng string) string {
	return tableID + "|" + rng
}

// Read implements store.Tabular.
func (f *FakeTabular) Read(ctx context.Context, tableID, readRange string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ReadCalls++
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	rows := f.Sheets[sheetKey(tableID, readRange)]
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// Append implements store.Tabular.
func (f *FakeTabular) Append(ctx context.Context, tableID, writeRange string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AppendCalls++
	if f.FailAppendsBefore > 0 {
		f.FailAppendsBefore--
		if f.AppendErr != nil {
			return f.AppendErr
		}
		return store.NewError(store.KindTransient, "append", tableID, fmt.Errorf("injected transient failure"))
	}
	if f.AppendErr != nil {
		return f.AppendErr
	}
	key := sheetKey(tableID, writeRange)
	for _, row := range rows {
		f.Appended[key] = append(f.Appended[key], append([]string(nil), row...))
	}
	return nil
}

// AppendedRows returns the rows appended for a table/range pair.
func (f *FakeTabular) AppendedRows(tableID, writeRange string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Appended[sheetKey(tableID, writeRange)]
}

type fakeNode struct {
	entry    store.Entry
	parentID string
	data     []byte
}

// FakeFiles is an in-memory store.Files backed by a flat node table. It
// allows duplicate sibling names on purpose so duplicate-resolution behavior
// can be exercised.
type FakeFiles struct {
	mu sync.Mutex

	nodes  map[string]*fakeNode
	order  []string // insertion order, doubles as listing order
	nextID int

	// ListErr, CreateErr and UploadErr are returned by every matching call
	// when set.
	ListErr   error
	CreateErr error
	UploadErr error

	// FailCreatesBefore fails the first n CreateFolder calls with CreateErr
	// (or a transient error when unset) while still creating the folder when
	// CreateSucceedsDespiteError is set, simulating an unknown create outcome.
	FailCreatesBefore          int
	CreateSucceedsDespiteError bool

	ListCalls   int
	CreateCalls int
	UploadCalls int
}

// NewFakeFiles builds an empty file store containing only the given root
// folder ids.
func NewFakeFiles(rootIDs ...string) *FakeFiles {
	f := &FakeFiles{nodes: make(map[string]*fakeNode)}
	for _, id := range rootIDs {
		f.nodes[id] = &fakeNode{entry: store.Entry{ID: id, Name: id, MIMEType: store.FolderMIMEType}}
		f.order = append(f.order, id)
	}
	return f
}

func (f *FakeFiles) allocID() string {
	f.nextID++
	return fmt.Sprintf("node-%03d", f.nextID)
}

// ListChildren implements store.Files.
func (f *FakeFiles) ListChildren(ctx context.Context, parentID, name string) ([]store.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if _, ok := f.nodes[parentID]; !ok {
		return nil, store.NewError(store.KindNotFound, "list children", parentID, nil)
	}
	var out []store.Entry
	for _, id := range f.order {
		node := f.nodes[id]
		if node.parentID != parentID {
			continue
		}
		if name != "" && node.entry.Name != name {
			continue
		}
		out = append(out, node.entry)
	}
	return out, nil
}

// CreateFolder implements store.Files.
func (f *FakeFiles) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls++
	if f.FailCreatesBefore > 0 {
		f.FailCreatesBefore--
		if f.CreateSucceedsDespiteError {
			f.insertLocked(parentID, name, store.FolderMIMEType, nil)
		}
		if f.CreateErr != nil {
			return "", f.CreateErr
		}
		return "", store.NewError(store.KindTransient, "create folder", parentID, fmt.Errorf("injected timeout"))
	}
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if _, ok := f.nodes[parentID]; !ok {
		return "", store.NewError(store.KindNotFound, "create folder", parentID, nil)
	}
	return f.insertLocked(parentID, name, store.FolderMIMEType, nil), nil
}

// Upload implements store.Files.
func (f *FakeFiles) Upload(ctx context.Context, parentID, name string, data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.UploadCalls++
	if f.UploadErr != nil {
		return "", f.UploadErr
	}
	if _, ok := f.nodes[parentID]; !ok {
		return "", store.NewError(store.KindNotFound, "upload", parentID, nil)
	}
	return f.insertLocked(parentID, name, mimeType, append([]byte(nil), data...)), nil
}

func (f *FakeFiles) insertLocked(parentID, name, mimeType string, data []byte) string {
	id := f.allocID()
	f.nodes[id] = &fakeNode{
		entry:    store.Entry{ID: id, Name: name, MIMEType: mimeType},
		parentID: parentID,
		data:     data,
	}
	f.order = append(f.order, id)
	return id
}

// InsertFolder seeds a folder directly, bypassing call counters. Returns the
// new id.
func (f *FakeFiles) InsertFolder(parentID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(parentID, name, store.FolderMIMEType, nil)
}

// RemoveNode deletes a node, simulating external deletion behind a cache.
func (f *FakeFiles) RemoveNode(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// ChildrenNamed returns how many children of parentID carry the given name.
func (f *FakeFiles) ChildrenNamed(parentID, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, id := range f.order {
		node := f.nodes[id]
		if node.parentID == parentID && node.entry.Name == name {
			count++
		}
	}
	return count
}

// FileData returns the uploaded bytes for a node id.
func (f *FakeFiles) FileData(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if node, ok := f.nodes[id]; ok {
		return node.data
	}
	return nil
}
