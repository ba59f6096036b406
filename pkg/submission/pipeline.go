package submission

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldvisit/pkg/provision"
	"github.com/goliatone/go-fieldvisit/pkg/store"
	"github.com/goliatone/go-fieldvisit/pkg/wizard"
)

// DefaultSheetName is the tab submissions are appended to.
const DefaultSheetName = "Visits"

// Field keys the pipeline reads from the session to derive the upload folder
// path and asset names. They match the default BasicInformation step.
const (
	fieldProgramManager = "program_manager"
	fieldSchool         = "school"
	fieldVisitDate      = "visit_date"
)

// AssetFile carries the bytes of one staged media file, keyed back to the
// session's staged assets by LocalName.
type AssetFile struct {
	LocalName string
	MIMEType  string
	Data      []byte
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger injects a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSheetName overrides the destination sheet tab.
func WithSheetName(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.sheetName = name
		}
	}
}

// Pipeline uploads a session's staged assets and commits the flattened row.
// A failed commit leaves the session untouched so the user can retry without
// re-entering anything; Flatten's determinism guarantees the retried row is
// byte-identical.
type Pipeline struct {
	steps       []wizard.StepDefinition
	tabular     store.Tabular
	files       store.Files
	provisioner *provision.Provisioner
	tableID     string
	rootFolder  string
	sheetName   string
	logger      *zap.Logger
}

// NewPipeline constructs a Pipeline. The file store and provisioner may be
// nil only for deployments that never attach media.
func NewPipeline(steps []wizard.StepDefinition, tabular store.Tabular, files store.Files, provisioner *provision.Provisioner, tableID, rootFolderID string, options ...Option) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("submission: step definitions are required")
	}
	if tabular == nil {
		return nil, fmt.Errorf("submission: tabular store is required")
	}
	if strings.TrimSpace(tableID) == "" {
		return nil, fmt.Errorf("submission: table id is required")
	}

	p := &Pipeline{
		steps:       append([]wizard.StepDefinition(nil), steps...),
		tabular:     tabular,
		files:       files,
		provisioner: provisioner,
		tableID:     tableID,
		rootFolder:  rootFolderID,
		sheetName:   DefaultSheetName,
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p, nil
}

// UploadAssets uploads every staged asset that does not yet have a remote id
// and records the ids on the session. It must complete before Submit so the
// committed row only references durable uploads. Files are placed under
// root/school/year/month/date and named <pm>_<school>_<date>_<localName>.
func (p *Pipeline) UploadAssets(ctx context.Context, sess *wizard.Session, assets []AssetFile) error {
	if sess == nil {
		return fmt.Errorf("submission: session is required")
	}
	pending := sess.Assets()
	if len(pending) == 0 {
		return nil
	}
	if p.files == nil || p.provisioner == nil {
		return fmt.Errorf("submission: file store and provisioner are required to upload assets")
	}

	pm := p.answerByKey(sess, fieldProgramManager)
	school := p.answerByKey(sess, fieldSchool)
	rawDate := p.answerByKey(sess, fieldVisitDate)
	visited, err := time.Parse(wizard.DateLayout, rawDate)
	if err != nil {
		return fmt.Errorf("submission: visit date %q: %w", rawDate, err)
	}

	path := provision.DatePath(school, visited)
	folderIDs, err := p.provisioner.Resolve(ctx, p.rootFolder, path...)
	if err != nil {
		return fmt.Errorf("submission: provision visit folder: %w", err)
	}
	target := folderIDs[len(folderIDs)-1]

	byName := make(map[string]AssetFile, len(assets))
	for _, file := range assets {
		byName[file.LocalName] = file
	}

	for i, asset := range pending {
		if asset.RemoteID != "" {
			continue
		}
		file, ok := byName[asset.LocalName]
		if !ok {
			return fmt.Errorf("submission: no file data provided for staged asset %q", asset.LocalName)
		}

		remoteName := fmt.Sprintf("%s_%s_%s_%s", pm, school, rawDate, file.LocalName)
		mimeType := file.MIMEType
		if mimeType == "" {
			mimeType = DetectMIME(file.LocalName)
		}

		id, err := p.files.Upload(ctx, target, remoteName, file.Data, mimeType)
		if store.IsNotFound(err) {
			// The target folder vanished behind the provisioner cache;
			// re-resolve once and retry.
			p.provisioner.Forget(p.rootFolder, path...)
			folderIDs, err = p.provisioner.Resolve(ctx, p.rootFolder, path...)
			if err != nil {
				return fmt.Errorf("submission: re-provision visit folder: %w", err)
			}
			target = folderIDs[len(folderIDs)-1]
			id, err = p.files.Upload(ctx, target, remoteName, file.Data, mimeType)
		}
		if err != nil {
			return fmt.Errorf("submission: upload %q: %w", file.LocalName, err)
		}

		sess.MarkUploaded(i, id)
		p.logger.Info("asset uploaded",
			zap.String("session", sess.ID),
			zap.String("file", file.LocalName),
			zap.String("remote_id", id),
		)
	}
	return nil
}

// Submit flattens the session and appends the row to the destination sheet.
// The append is all-or-nothing from the caller's perspective: any header
// misalignment is detected and reported before a write is attempted, and a
// failed write leaves the session state intact for retry.
func (p *Pipeline) Submit(ctx context.Context, sess *wizard.Session) (Row, error) {
	row, err := Flatten(p.steps, sess)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, fmt.Errorf("submission: session has no answers to submit")
	}

	header, err := p.readHeader(ctx)
	if err != nil {
		return nil, err
	}

	var values []string
	if len(header) == 0 {
		// First submission ever: establish the header from this row.
		if err := p.tabular.Append(ctx, p.tableID, p.sheetName, [][]string{row.Columns()}); err != nil {
			return nil, fmt.Errorf("submission: write header: %w", err)
		}
		values = row.Values()
	} else {
		values, err = alignToHeader(header, row)
		if err != nil {
			return nil, err
		}
	}

	if err := p.tabular.Append(ctx, p.tableID, p.sheetName, [][]string{values}); err != nil {
		return nil, fmt.Errorf("submission: append row: %w", err)
	}

	p.logger.Info("submission committed",
		zap.String("session", sess.ID),
		zap.Int("columns", len(values)),
	)
	return row, nil
}

func (p *Pipeline) readHeader(ctx context.Context) ([]string, error) {
	rows, err := p.tabular.Read(ctx, p.tableID, p.sheetName+"!1:1")
	if err != nil {
		// A sheet that does not exist yet behaves like an empty header.
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("submission: read header: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// alignToHeader orders the row's values to match the sheet header. Columns
// the header lacks make the submission fail with a schema error before
// anything is written; header columns the row lacks are filled blank.
func alignToHeader(header []string, row Row) ([]string, error) {
	position := make(map[string]int, len(header))
	for i, name := range header {
		position[strings.TrimSpace(name)] = i
	}

	for _, cell := range row {
		if _, ok := position[cell.Column]; !ok {
			return nil, store.NewError(store.KindSchema, "align row", cell.Column,
				fmt.Errorf("column missing from sheet header"))
		}
	}

	values := make([]string, len(header))
	for _, cell := range row {
		values[position[cell.Column]] = cell.Value
	}
	return values, nil
}

// answerByKey finds the first answer for a field key across all steps.
func (p *Pipeline) answerByKey(sess *wizard.Session, key string) string {
	for i := range p.steps {
		if v, ok := sess.Answer(i+1, key); ok {
			return v
		}
	}
	return ""
}

// DetectMIME guesses a content type from a file name, defaulting to a
// generic binary type.
func DetectMIME(name string) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		return mt
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mov":
		return "video/quicktime"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
