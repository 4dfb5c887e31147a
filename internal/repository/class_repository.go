package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
)

const slotColumns = "id, day, start_time, end_time, subject_id, subject_name, teacher_id, teacher_name, room_id, room_name, type, activity_type, title"

// ClassRepository loads classes together with their subjects and weekly
// schedule, and rewrites schedules as a whole.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

type classSubjectRow struct {
	ClassID string `db:"class_id"`
	models.ClassSubject
}

type slotRow struct {
	ClassID  string `db:"class_id"`
	Position int    `db:"position"`
	models.ScheduleSlot
}

// BeginTxx starts a transaction for multi-class schedule writes.
func (r *ClassRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// List returns every class matching filter with subjects and schedule
// populated, ordered by grade level then section. Slots keep their stored order.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassInfo, error) {
	query := "SELECT id, school_id, grade_level, section FROM classes WHERE 1=1"
	var args []interface{}
	if filter.SchoolID != "" {
		query += " AND school_id = ?"
		args = append(args, filter.SchoolID)
	}
	if len(filter.GradeLevels) > 0 {
		query += " AND grade_level IN (?)"
		args = append(args, filter.GradeLevels)
	}
	if len(filter.ClassIDs) > 0 {
		query += " AND id IN (?)"
		args = append(args, filter.ClassIDs)
	}
	query += " ORDER BY grade_level ASC, section ASC"

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build class query: %w", err)
	}
	var classes []models.ClassInfo
	if err := r.db.SelectContext(ctx, &classes, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	if len(classes) == 0 {
		return []models.ClassInfo{}, nil
	}
	if err := r.attach(ctx, classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// FindByID returns one class with subjects and schedule. sql.ErrNoRows is
// returned unwrapped when the class does not exist.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassInfo, error) {
	const query = `SELECT id, school_id, grade_level, section FROM classes WHERE id = $1`
	var class models.ClassInfo
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	classes := []models.ClassInfo{class}
	if err := r.attach(ctx, classes); err != nil {
		return nil, err
	}
	return &classes[0], nil
}

func (r *ClassRepository) attach(ctx context.Context, classes []models.ClassInfo) error {
	ids := make([]string, len(classes))
	index := make(map[string]int, len(classes))
	for i := range classes {
		ids[i] = classes[i].ID
		index[classes[i].ID] = i
		classes[i].Subjects = []models.ClassSubject{}
		classes[i].Schedule = []models.ScheduleSlot{}
	}

	subjectQuery, args, err := sqlx.In(`SELECT class_id, subject_id AS id, subject_name AS name, teacher_id FROM class_subjects WHERE class_id IN (?) ORDER BY class_id, position`, ids)
	if err != nil {
		return fmt.Errorf("build subject query: %w", err)
	}
	var subjects []classSubjectRow
	if err := r.db.SelectContext(ctx, &subjects, r.db.Rebind(subjectQuery), args...); err != nil {
		return fmt.Errorf("list class subjects: %w", err)
	}
	for _, row := range subjects {
		if i, ok := index[row.ClassID]; ok {
			classes[i].Subjects = append(classes[i].Subjects, row.ClassSubject)
		}
	}

	slotQuery, args, err := sqlx.In(`SELECT class_id, position, `+slotColumns+` FROM class_schedule_slots WHERE class_id IN (?) ORDER BY class_id, position`, ids)
	if err != nil {
		return fmt.Errorf("build slot query: %w", err)
	}
	var slots []slotRow
	if err := r.db.SelectContext(ctx, &slots, r.db.Rebind(slotQuery), args...); err != nil {
		return fmt.Errorf("list schedule slots: %w", err)
	}
	for _, row := range slots {
		if i, ok := index[row.ClassID]; ok {
			classes[i].Schedule = append(classes[i].Schedule, row.ScheduleSlot)
		}
	}
	return nil
}

// ReplaceSchedule overwrites the stored schedule of a class with slots,
// preserving their order. Pass a transaction to group several classes; a nil
// exec runs the delete and insert in a transaction of their own.
func (r *ClassRepository) ReplaceSchedule(ctx context.Context, exec sqlx.ExtContext, classID string, slots []models.ScheduleSlot) error {
	if exec == nil {
		return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
			return r.ReplaceSchedule(ctx, tx, classID, slots)
		})
	}
	target := exec
	if _, err := target.ExecContext(ctx, target.Rebind(`DELETE FROM class_schedule_slots WHERE class_id = ?`), classID); err != nil {
		return fmt.Errorf("clear schedule of class %s: %w", classID, err)
	}
	if len(slots) == 0 {
		return nil
	}

	rows := make([]slotRow, len(slots))
	for i, slot := range slots {
		rows[i] = slotRow{ClassID: classID, Position: i, ScheduleSlot: slot}
	}
	columns := "class_id, position, " + slotColumns
	placeholders := ":" + strings.ReplaceAll(columns, ", ", ", :")
	query := fmt.Sprintf("INSERT INTO class_schedule_slots (%s) VALUES (%s)", columns, placeholders)
	if _, err := sqlx.NamedExecContext(ctx, target, query, rows); err != nil {
		return fmt.Errorf("insert schedule of class %s: %w", classID, err)
	}
	return nil
}
