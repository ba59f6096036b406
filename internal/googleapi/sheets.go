// Package googleapi adapts the Google Sheets and Drive services to the
// tabular and file store interfaces, translating their failures into the
// shared error taxonomy.
package googleapi

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/goliatone/go-fieldvisit/pkg/store"
)

// SheetsStore implements store.Tabular on top of the Sheets v4 API.
type SheetsStore struct {
	svc *sheets.Service
}

// NewSheetsStore builds a tabular store using the given client options,
// typically option.WithCredentialsFile or option.WithHTTPClient.
func NewSheetsStore(ctx context.Context, opts ...option.ClientOption) (*SheetsStore, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("googleapi: create sheets service: %w", err)
	}
	return &SheetsStore{svc: svc}, nil
}

// NewSheetsStoreFromService wraps an already configured service. Tests use
// this with a service pointed at a local HTTP stub.
func NewSheetsStoreFromService(svc *sheets.Service) *SheetsStore {
	return &SheetsStore{svc: svc}
}

// Read implements store.Tabular.
func (s *SheetsStore) Read(ctx context.Context, tableID, readRange string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(tableID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, translateErr("read range", tableID, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Append implements store.Tabular. Values are written untyped so the sheet
// never reinterprets dates or leading zeros.
func (s *SheetsStore) Append(ctx context.Context, tableID, writeRange string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}

	_, err := s.svc.Spreadsheets.Values.
		Append(tableID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return translateErr("append rows", tableID, err)
	}
	return nil
}

var _ store.Tabular = (*SheetsStore)(nil)
