package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlRecorder keeps every statement gorm renders, including dry runs
type sqlRecorder struct {
	statements []string
}

func (r *sqlRecorder) LogMode(logger.LogLevel) logger.Interface    { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.statements = append(r.statements, sql)
}

func (r *sqlRecorder) find(t *testing.T, prefix string) string {
	t.Helper()
	for _, sql := range r.statements {
		if strings.HasPrefix(sql, prefix) {
			return sql
		}
	}
	t.Fatalf("no %s statement in %q", prefix, r.statements)
	return ""
}

// newRecordingDB renders SQL without a server; nothing is executed so every write affects 0 rows
func newRecordingDB(t *testing.T) (*gorm.DB, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=lms dbname=lms sslmode=disable"}), &gorm.Config{
		DryRun:                 true,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 rec,
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	return db, rec
}

func assertContainsAll(t *testing.T, sql string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(sql, part) {
			t.Errorf("sql = %q, want it to contain %q", sql, part)
		}
	}
}

func TestSubmissionUpsert_SQL(t *testing.T) {
	db, rec := newRecordingDB(t)
	repo := NewSubmissionPostgreSQL(db, nil)

	content := "see attached"
	err := repo.Upsert(context.Background(), nil, &models.Submission{
		AssignmentID: 4,
		StudentID:    "stud-1",
		FileURL:      "https://files.example.edu/essay-v2.pdf",
		Content:      &content,
		SubmittedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	insert := rec.find(t, `INSERT INTO "submissions"`)
	assertContainsAll(t, insert,
		`ON CONFLICT ("assignment_id","student_id") DO UPDATE SET`,
		`"file_url"="excluded"."file_url"`,
		`"content"="excluded"."content"`,
		`"submitted_at"="excluded"."submitted_at"`,
		`"updated_at"="excluded"."updated_at"`,
	)
	// a resubmission keeps the grade
	for _, graded := range []string{`"score"="excluded"`, `"feedback"="excluded"`, `"graded_at"="excluded"`, `"graded_by"="excluded"`} {
		if strings.Contains(insert, graded) {
			t.Errorf("sql = %q, must not overwrite %s", insert, graded)
		}
	}

	reload := rec.find(t, `SELECT * FROM "submissions"`)
	assertContainsAll(t, reload, "assignment_id = 4", "student_id = 'stud-1'")
}

func TestEnrollmentUpdateStatus_CompareAndSet(t *testing.T) {
	db, rec := newRecordingDB(t)
	repo := NewEnrollmentPostgreSQL(db, nil)

	err := repo.UpdateStatus(context.Background(), nil, 5, models.EnrollmentPending, models.EnrollmentApproved)
	if !errors.Is(err, repositories.ErrStaleState) {
		t.Errorf("UpdateStatus() with 0 rows affected error = %v, want ErrStaleState", err)
	}

	update := rec.find(t, `UPDATE "enrollments"`)
	assertContainsAll(t, update, `"status"='approved'`, "id = 5", "status = 'pending'")
}

func TestEnrollmentDeleteWithStatus_CompareAndSet(t *testing.T) {
	db, rec := newRecordingDB(t)
	repo := NewEnrollmentPostgreSQL(db, nil)

	err := repo.DeleteWithStatus(context.Background(), nil, 9, models.EnrollmentWithdrawalPending)
	if !errors.Is(err, repositories.ErrStaleState) {
		t.Errorf("DeleteWithStatus() with 0 rows affected error = %v, want ErrStaleState", err)
	}

	del := rec.find(t, `DELETE FROM "enrollments"`)
	assertContainsAll(t, del, "id = 9", "status = 'withdrawal_pending'")
}

func TestCourseUpdateStatus_CompareAndSet(t *testing.T) {
	db, rec := newRecordingDB(t)
	repo := NewCoursePostgreSQL(db, nil)

	err := repo.UpdateStatus(context.Background(), nil, 2, models.CourseStatusRejected, models.CourseStatusApproved)
	if !errors.Is(err, repositories.ErrStaleState) {
		t.Errorf("UpdateStatus() error = %v, want ErrStaleState", err)
	}
	assertContainsAll(t, rec.find(t, `UPDATE "courses"`), `"status"='approved'`, "id = 2", "status = 'rejected'")
}

func TestCheckRowsAffected(t *testing.T) {
	tests := []struct {
		name   string
		result *gorm.DB
		want   error
	}{
		{"row changed", &gorm.DB{RowsAffected: 1}, nil},
		{"state moved on", &gorm.DB{RowsAffected: 0}, repositories.ErrStaleState},
		{"driver error", &gorm.DB{Error: gorm.ErrRecordNotFound}, repositories.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRowsAffected(tt.result, "update enrollment status")
			if tt.want == nil {
				if err != nil {
					t.Errorf("error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !strings.HasPrefix(err.Error(), "update enrollment status failed: ") {
				t.Errorf("error = %q, want operation prefix", err.Error())
			}
		})
	}
}
