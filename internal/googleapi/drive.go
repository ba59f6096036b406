package googleapi

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/goliatone/go-fieldvisit/pkg/store"
)

// DriveStore implements store.Files on top of the Drive v3 API. All calls set
// the shared-drive flags so the same code works against personal and shared
// drives.
type DriveStore struct {
	svc *drive.Service
}

// NewDriveStore builds a file store using the given client options.
func NewDriveStore(ctx context.Context, opts ...option.ClientOption) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("googleapi: create drive service: %w", err)
	}
	return &DriveStore{svc: svc}, nil
}

// NewDriveStoreFromService wraps an already configured service.
func NewDriveStoreFromService(svc *drive.Service) *DriveStore {
	return &DriveStore{svc: svc}
}

// ListChildren implements store.Files. Results follow the backend's listing
// order; trashed entries are excluded.
func (d *DriveStore) ListChildren(ctx context.Context, parentID, name string) ([]store.Entry, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryValue(parentID))
	if name != "" {
		query += fmt.Sprintf(" and name = '%s'", escapeQueryValue(name))
	}

	var out []store.Entry
	pageToken := ""
	for {
		call := d.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, translateErr("list children", parentID, err)
		}
		for _, f := range resp.Files {
			out = append(out, store.Entry{ID: f.Id, Name: f.Name, MIMEType: f.MimeType})
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

// CreateFolder implements store.Files.
func (d *DriveStore) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	created, err := d.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: store.FolderMIMEType,
		Parents:  []string{parentID},
	}).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", translateErr("create folder", parentID, err)
	}
	return created.Id, nil
}

// Upload implements store.Files.
func (d *DriveStore) Upload(ctx context.Context, parentID, name string, data []byte, mimeType string) (string, error) {
	created, err := d.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{parentID},
	}).
		Media(bytes.NewReader(data)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", translateErr("upload", parentID, err)
	}
	return created.Id, nil
}

// escapeQueryValue escapes single quotes and backslashes for Drive query
// string literals.
func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

var _ store.Files = (*DriveStore)(nil)
