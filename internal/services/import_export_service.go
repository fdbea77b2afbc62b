package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type importExportService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger) ImportExportService {
	return &importExportService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ExportGradebook writes one row per approved student and one column per assignment
func (s *importExportService) ExportGradebook(ctx context.Context, courseID uint, userID string) (*ExportFile, error) {
	course, err := s.managedCourse(ctx, courseID, userID, "export_gradebook")
	if err != nil {
		return nil, err
	}
	s.logger.Info("Exporting gradebook", "course_id", courseID, "user_id", userID)

	assignments, _, err := s.repo.Assignment().List(ctx, nil, repositories.AssignmentFilters{
		CourseID:  &courseID,
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	enrollments, students, err := s.approvedStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.Submission().GetGradebook(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gradebook: %w", err)
	}
	scores := make(map[string]map[uint]float64, len(enrollments))
	for _, e := range entries {
		if e.Score == nil {
			continue
		}
		if scores[e.StudentID] == nil {
			scores[e.StudentID] = make(map[uint]float64)
		}
		scores[e.StudentID][e.AssignmentID] = *e.Score
	}

	header := []interface{}{"Student", "Email"}
	for _, a := range assignments {
		header = append(header, fmt.Sprintf("%s (%d)", a.Title, a.MaxScore))
	}
	header = append(header, "Total")

	rows := make([][]interface{}, 0, len(enrollments))
	for _, e := range enrollments {
		name, email := studentLabel(students[e.StudentID], e.StudentID)
		row := []interface{}{name, email}
		total := 0.0
		for _, a := range assignments {
			if score, ok := scores[e.StudentID][a.ID]; ok {
				row = append(row, score)
				total += score
			} else {
				row = append(row, "")
			}
		}
		row = append(row, roundFloat(total, 2))
		rows = append(rows, row)
	}

	data, err := writeSheet("Gradebook", header, rows)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		FileName:    exportFileName(course, "gradebook", s.now()),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

// ExportRoster writes every enrollment of the course regardless of status
func (s *importExportService) ExportRoster(ctx context.Context, courseID uint, userID string) (*ExportFile, error) {
	course, err := s.managedCourse(ctx, courseID, userID, "export_roster")
	if err != nil {
		return nil, err
	}
	s.logger.Info("Exporting roster", "course_id", courseID, "user_id", userID)

	enrollments, _, err := s.repo.Enrollment().List(ctx, nil, repositories.EnrollmentFilters{
		CourseID:  &courseID,
		SortBy:    "enrolled_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	students, err := s.lookupStudents(ctx, enrollments)
	if err != nil {
		return nil, err
	}

	header := []interface{}{"Student", "Email", "Status", "Progress", "Enrolled At"}
	rows := make([][]interface{}, 0, len(enrollments))
	for _, e := range enrollments {
		name, email := studentLabel(students[e.StudentID], e.StudentID)
		rows = append(rows, []interface{}{
			name,
			email,
			string(e.Status),
			e.Progress,
			e.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := writeSheet("Roster", header, rows)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		FileName:    exportFileName(course, "roster", s.now()),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

// ===== HELPERS =====

func (s *importExportService) managedCourse(ctx context.Context, courseID uint, userID, action string) (*models.Course, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return nil, NewPermissionError(userID, courseID, "course", action, "not the course lecturer")
	}
	return course, nil
}

func (s *importExportService) approvedStudents(ctx context.Context, courseID uint) ([]*models.Enrollment, map[string]*models.User, error) {
	approved := models.EnrollmentApproved
	enrollments, _, err := s.repo.Enrollment().List(ctx, nil, repositories.EnrollmentFilters{
		CourseID:  &courseID,
		Status:    &approved,
		SortBy:    "enrolled_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	students, err := s.lookupStudents(ctx, enrollments)
	if err != nil {
		return nil, nil, err
	}
	return enrollments, students, nil
}

func (s *importExportService) lookupStudents(ctx context.Context, enrollments []*models.Enrollment) (map[string]*models.User, error) {
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	result := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// studentLabel falls back to the id for accounts removed from the identity provider
func studentLabel(u *models.User, id string) (string, string) {
	if u == nil {
		return id, ""
	}
	return u.FullName, u.Email
}

func exportFileName(course *models.Course, kind string, now time.Time) string {
	code := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '"':
			return '_'
		}
		return r
	}, course.Code)
	return fmt.Sprintf("%s_%s_%s.xlsx", code, kind, now.Format("20060102"))
}

// writeSheet renders a single-sheet workbook with a bold, frozen header row
func writeSheet(name string, header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(name, cell, &rows[i]); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(name, "A", lastCol, 18); err != nil {
		return nil, err
	}
	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
