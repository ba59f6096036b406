package reference

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldvisit/pkg/store"
)

// Default sheet ranges, matching the layout of the operations spreadsheet.
const (
	DefaultSchoolsRange  = "Schools!A:D"
	DefaultTeachersRange = "Teachers!A:C"
)

// Column headers the loader requires. Lookup is by header name, not
// position, so sheet editors can reorder or add columns freely.
const (
	columnProgramManager = "Program Manager"
	columnSchoolName     = "School Name"
	columnTeacherName    = "Teacher Name"
	columnIsTrained      = "Is Trained"
)

// Option customises a Loader.
type Option func(*Loader)

// WithLogger injects a structured logger; the default is a no-op logger so
// library callers stay quiet unless they opt in.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRanges overrides the sheet ranges the loader reads.
func WithRanges(schoolsRange, teachersRange string) Option {
	return func(l *Loader) {
		if schoolsRange != "" {
			l.schoolsRange = schoolsRange
		}
		if teachersRange != "" {
			l.teachersRange = teachersRange
		}
	}
}

// Loader reads the Schools and Teachers sheets and builds a Dataset. Load is
// side-effect free beyond the reads themselves; callers may cache the result
// for the lifetime of a session.
type Loader struct {
	tabular       store.Tabular
	tableID       string
	schoolsRange  string
	teachersRange string
	logger        *zap.Logger
}

// NewLoader constructs a Loader for the given tabular store and spreadsheet.
func NewLoader(tabular store.Tabular, tableID string, options ...Option) (*Loader, error) {
	if tabular == nil {
		return nil, fmt.Errorf("reference: tabular store is required")
	}
	if strings.TrimSpace(tableID) == "" {
		return nil, fmt.Errorf("reference: table id is required")
	}

	l := &Loader{
		tabular:       tabular,
		tableID:       tableID,
		schoolsRange:  DefaultSchoolsRange,
		teachersRange: DefaultTeachersRange,
		logger:        zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l, nil
}

// Load reads both sheets and builds the session Dataset. Empty or
// unreachable tables yield a KindUnavailable error; missing columns yield
// KindSchema. Auth failures from the store pass through untranslated so the
// caller can distinguish credential problems from missing data.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	schools, err := l.loadSchools(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := l.loadTeachers(ctx)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("reference data loaded",
		zap.Int("schools", len(schools)),
		zap.Int("teachers", len(teachers)),
	)
	return buildDataset(schools, teachers), nil
}

func (l *Loader) loadSchools(ctx context.Context) ([]schoolRow, error) {
	rows, err := l.readSheet(ctx, l.schoolsRange)
	if err != nil {
		return nil, err
	}

	cols, err := headerIndex(rows[0], l.schoolsRange, columnProgramManager, columnSchoolName)
	if err != nil {
		return nil, err
	}

	var out []schoolRow
	for _, row := range rows[1:] {
		pm := cell(row, cols[columnProgramManager])
		school := cell(row, cols[columnSchoolName])
		if pm == "" || school == "" {
			continue
		}
		out = append(out, schoolRow{pm: pm, school: school})
	}
	if len(out) == 0 {
		return nil, store.NewError(store.KindUnavailable, "load schools", l.tableID,
			fmt.Errorf("no data rows in %s", l.schoolsRange))
	}
	return out, nil
}

func (l *Loader) loadTeachers(ctx context.Context) ([]teacherRow, error) {
	rows, err := l.readSheet(ctx, l.teachersRange)
	if err != nil {
		// The Teachers sheet is optional enrichment; an entirely absent range
		// behaves like an empty one.
		if store.IsUnavailable(err) {
			return nil, nil
		}
		return nil, err
	}

	cols, err := headerIndex(rows[0], l.teachersRange, columnSchoolName, columnTeacherName, columnIsTrained)
	if err != nil {
		return nil, err
	}

	var out []teacherRow
	for _, row := range rows[1:] {
		school := cell(row, cols[columnSchoolName])
		name := cell(row, cols[columnTeacherName])
		if school == "" || name == "" {
			continue
		}
		out = append(out, teacherRow{
			school:  school,
			name:    name,
			trained: parseTrained(cell(row, cols[columnIsTrained])),
		})
	}
	return out, nil
}

func (l *Loader) readSheet(ctx context.Context, readRange string) ([][]string, error) {
	rows, err := l.tabular.Read(ctx, l.tableID, readRange)
	if err != nil {
		if store.IsAuth(err) || store.IsPermission(err) {
			return nil, err
		}
		return nil, store.NewError(store.KindUnavailable, "read sheet", l.tableID,
			fmt.Errorf("%s: %w", readRange, err))
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, store.NewError(store.KindUnavailable, "read sheet", l.tableID,
			fmt.Errorf("%s is empty", readRange))
	}
	return rows, nil
}

// headerIndex maps required column names to their positions in the header
// row. Header matching trims whitespace and ignores case.
func headerIndex(header []string, readRange string, required ...string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	out := make(map[string]int, len(required))
	for _, name := range required {
		pos, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, store.NewError(store.KindSchema, "read sheet", readRange,
				fmt.Errorf("column %q not found in header", name))
		}
		out[name] = pos
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseTrained(raw string) bool {
	switch strings.ToLower(raw) {
	case "yes", "y", "true", "trained", "1":
		return true
	default:
		return false
	}
}
