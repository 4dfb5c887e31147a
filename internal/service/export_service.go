package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

type classLister interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassInfo, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type matrixRenderer interface {
	Render(matrices []export.Matrix) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Days      []models.Weekday
	TimeSlots []models.TimeSlot
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders class or teacher timetables and persists the files.
type ExportService struct {
	classes classLister
	storage fileStorage
	render  map[models.ExportFormat]matrixRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService. Formats missing from
// renderers fall back to the built-in CSV, PDF and XLSX exporters.
func NewExportService(classes classLister, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers map[models.ExportFormat]matrixRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if len(cfg.Days) == 0 {
		cfg.Days = models.Weekdays
	}
	render := map[models.ExportFormat]matrixRenderer{
		models.ExportFormatCSV:  export.NewCSVExporter(),
		models.ExportFormatPDF:  export.NewPDFExporter(),
		models.ExportFormatXLSX: export.NewXLSXExporter(),
	}
	for format, renderer := range renderers {
		if renderer != nil {
			render[format] = renderer
		}
	}
	return &ExportService{
		classes: classes,
		storage: storage,
		render:  render,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the timetables selected by the job and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	matrices, err := s.BuildMatrices(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	renderer, ok := s.render[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	payload, err := renderer.Render(matrices)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("timetable export rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Params.Format)),
		zap.Int("matrices", len(matrices)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    claims.ExpiresAt,
	}, nil
}

// BuildMatrices lays out the selected timetables on the configured grid: one
// matrix per class, or a single matrix when a teacher is selected.
func (s *ExportService) BuildMatrices(ctx context.Context, params models.ExportJobParams) ([]export.Matrix, error) {
	classes, err := s.classes.List(ctx, params.Filter())
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no classes match the export filter")
	}
	if params.TeacherID != "" {
		return []export.Matrix{s.teacherMatrix(params.TeacherID, classes)}, nil
	}

	matrices := make([]export.Matrix, 0, len(classes))
	for _, class := range classes {
		grid := timetable.NewGrid(s.cfg.TimeSlots, s.cfg.Days, class.Schedule)
		matrix := export.Matrix{
			Title:    fmt.Sprintf("Class %s", class.Label()),
			Subtitle: class.SchoolID,
			Days:     dayNames(s.cfg.Days),
		}
		for _, row := range grid.Rows() {
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				if cell.Slot != nil {
					cells[i] = slotLabel(*cell.Slot, "")
				}
			}
			matrix.Rows = append(matrix.Rows, export.MatrixRow{Time: timeLabel(row.Time), Cells: cells})
		}
		matrices = append(matrices, matrix)
	}
	return matrices, nil
}

func (s *ExportService) teacherMatrix(teacherID string, classes []models.ClassInfo) export.Matrix {
	type cellKey struct {
		day   models.Weekday
		start string
	}
	labels := make(map[cellKey][]string)
	teacherName := teacherID
	for _, class := range classes {
		for _, slot := range class.Schedule {
			if slot.TeacherID != teacherID {
				continue
			}
			if slot.TeacherName != "" {
				teacherName = slot.TeacherName
			}
			key := cellKey{day: slot.Day, start: slot.StartTime}
			labels[key] = append(labels[key], slotLabel(slot, class.Label()))
		}
	}

	matrix := export.Matrix{
		Title:    teacherName,
		Subtitle: "Teacher timetable",
		Days:     dayNames(s.cfg.Days),
	}
	for _, ts := range s.cfg.TimeSlots {
		cells := make([]string, len(s.cfg.Days))
		for i, day := range s.cfg.Days {
			entries := labels[cellKey{day: day, start: ts.Start}]
			sort.Strings(entries)
			cells[i] = strings.Join(entries, " / ")
		}
		matrix.Rows = append(matrix.Rows, export.MatrixRow{Time: timeLabel(ts), Cells: cells})
	}
	return matrix
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// VerifyToken validates a download token; allowExpired skips the expiry check.
func (s *ExportService) VerifyToken(token string, allowExpired bool) (storage.Claims, error) {
	if allowExpired {
		return s.signer.VerifyIgnoringExpiry(token)
	}
	return s.signer.Verify(token)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "classes"
	if job.Params.TeacherID != "" {
		scope = "teacher_" + sanitizeFilename(job.Params.TeacherID)
	} else if job.Params.SchoolID != "" {
		scope = sanitizeFilename(job.Params.SchoolID)
	}
	return fmt.Sprintf("timetable_%s_%s_%s.%s", scope, sanitizeFilename(job.ID), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// slotLabel renders a cell as title, teacher and room on separate lines.
func slotLabel(slot models.ScheduleSlot, classLabel string) string {
	title := slot.Title
	if title == "" {
		title = slot.SubjectName
	}
	if title == "" {
		title = string(slot.ActivityType)
	}
	parts := []string{title}
	if classLabel != "" {
		parts = append(parts, classLabel)
	} else if slot.TeacherName != "" {
		parts = append(parts, slot.TeacherName)
	}
	if room := slot.RoomLabel(); room != "" {
		parts = append(parts, room)
	}
	return strings.Join(parts, "\n")
}

func timeLabel(ts models.TimeSlot) string {
	return ts.Start + "-" + ts.End
}

func dayNames(days []models.Weekday) []string {
	names := make([]string, len(days))
	for i, day := range days {
		names[i] = string(day)
	}
	return names
}
