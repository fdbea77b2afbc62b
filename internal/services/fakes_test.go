package services

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"gorm.io/gorm"
)

// fakeStore is an in-memory Repository used by the service tests
type fakeStore struct {
	mu sync.Mutex

	courses       map[uint]*models.Course
	enrollments   map[uint]*models.Enrollment
	assignments   map[uint]*models.Assignment
	submissions   map[uint]*models.Submission
	announcements map[uint]*models.Announcement
	users         map[string]*models.User
	roles         map[string]models.UserRole
	passwords     map[string]string
	nextID        uint

	// call counters for asserting what was (not) written
	identityMutations int
	gradeCalls        int

	setRoleErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses:       make(map[uint]*models.Course),
		enrollments:   make(map[uint]*models.Enrollment),
		assignments:   make(map[uint]*models.Assignment),
		submissions:   make(map[uint]*models.Submission),
		announcements: make(map[uint]*models.Announcement),
		users:         make(map[string]*models.User),
		roles:         make(map[string]models.UserRole),
		passwords:     make(map[string]string),
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addUser(id string, role models.UserRole) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: id, FullName: strings.ToUpper(id[:1]) + id[1:], Email: id + "@example.edu", Role: role}
	f.users[id] = u
	f.roles[id] = role
	return u
}

func (f *fakeStore) addCourse(lecturerID string, status models.CourseStatus) *models.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.Course{ID: f.id(), Code: "CS101", Name: "Intro", Year: 2026, Status: status, CreatedBy: lecturerID}
	if lecturerID != "" {
		c.LecturerID = &lecturerID
	}
	f.courses[c.ID] = c
	return c
}

func (f *fakeStore) addEnrollment(courseID uint, studentID string, status models.EnrollmentStatus) *models.Enrollment {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &models.Enrollment{ID: f.id(), CourseID: courseID, StudentID: studentID, Status: status, EnrolledAt: time.Now()}
	f.enrollments[e.ID] = e
	return e
}

func (f *fakeStore) addAssignment(courseID uint, maxScore int) *models.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &models.Assignment{ID: f.id(), CourseID: courseID, Title: "Lab 1", MaxScore: maxScore, CreatedAt: time.Now()}
	f.assignments[a.ID] = a
	return a
}

// ===== Repository =====

func (f *fakeStore) Course() repositories.CourseRepository             { return fakeCourses{f} }
func (f *fakeStore) Enrollment() repositories.EnrollmentRepository     { return fakeEnrollments{f} }
func (f *fakeStore) Assignment() repositories.AssignmentRepository     { return fakeAssignments{f} }
func (f *fakeStore) Submission() repositories.SubmissionRepository     { return fakeSubmissions{f} }
func (f *fakeStore) Announcement() repositories.AnnouncementRepository { return fakeAnnouncements{f} }
func (f *fakeStore) User() repositories.UserRepository                 { return fakeUsers{f} }
func (f *fakeStore) Role() repositories.RoleRepository                 { return fakeRoles{f} }
func (f *fakeStore) Dashboard() repositories.DashboardRepository       { return fakeDashboard{f} }
func (f *fakeStore) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}
func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func paginate[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ===== courses =====

type fakeCourses struct{ f *fakeStore }

func (r fakeCourses) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	course.ID = r.f.id()
	r.f.courses[course.ID] = course
	return nil
}

func (r fakeCourses) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	c, ok := r.f.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r fakeCourses) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.courses[course.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *course
	r.f.courses[course.ID] = &cp
	return nil
}

func (r fakeCourses) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.CourseStatus) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	c, ok := r.f.courses[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if c.Status != from {
		return repositories.ErrStaleState
	}
	c.Status = to
	return nil
}

func (r fakeCourses) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.courses[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.courses, id)
	return nil
}

func (r fakeCourses) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Course
	for _, c := range r.f.courses {
		if filters.Visibility != nil {
			v := filters.Visibility
			visible := v.Role == models.RoleAdmin || c.Status == models.CourseStatusApproved ||
				(v.Role == models.RoleLecturer && c.IsOwnedBy(v.UserID))
			if !visible {
				continue
			}
		}
		if filters.Status != nil && c.Status != *filters.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (r fakeCourses) GetIDsByLecturer(ctx context.Context, tx *gorm.DB, lecturerID string) ([]uint, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var ids []uint
	for _, c := range r.f.courses {
		if c.IsOwnedBy(lecturerID) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (r fakeCourses) ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	_, ok := r.f.courses[id]
	return ok, nil
}

// ===== enrollments =====

type fakeEnrollments struct{ f *fakeStore }

func (r fakeEnrollments) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, e := range r.f.enrollments {
		if e.CourseID == enrollment.CourseID && e.StudentID == enrollment.StudentID {
			return repositories.ErrDuplicate
		}
	}
	enrollment.ID = r.f.id()
	cp := *enrollment
	r.f.enrollments[enrollment.ID] = &cp
	return nil
}

func (r fakeEnrollments) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	e, ok := r.f.enrollments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r fakeEnrollments) GetByCourseAndStudent(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (*models.Enrollment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, e := range r.f.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeEnrollments) Exists(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error) {
	_, err := r.GetByCourseAndStudent(ctx, tx, courseID, studentID)
	if repositories.IsNotFoundError(err) {
		return false, nil
	}
	return err == nil, err
}

func (r fakeEnrollments) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.EnrollmentStatus) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	e, ok := r.f.enrollments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if e.Status != from {
		return repositories.ErrStaleState
	}
	e.Status = to
	return nil
}

func (r fakeEnrollments) UpdateProgress(ctx context.Context, tx *gorm.DB, id uint, progress int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	e, ok := r.f.enrollments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	e.Progress = progress
	return nil
}

func (r fakeEnrollments) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.enrollments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.enrollments, id)
	return nil
}

func (r fakeEnrollments) DeleteWithStatus(ctx context.Context, tx *gorm.DB, id uint, status models.EnrollmentStatus) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	e, ok := r.f.enrollments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if e.Status != status {
		return repositories.ErrStaleState
	}
	delete(r.f.enrollments, id)
	return nil
}

func (r fakeEnrollments) List(ctx context.Context, tx *gorm.DB, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Enrollment
	for _, e := range r.f.enrollments {
		if filters.CourseID != nil && e.CourseID != *filters.CourseID {
			continue
		}
		if filters.StudentID != nil && e.StudentID != *filters.StudentID {
			continue
		}
		if filters.Status != nil && e.Status != *filters.Status {
			continue
		}
		if filters.LecturerID != nil {
			c := r.f.courses[e.CourseID]
			if c == nil || !c.IsOwnedBy(*filters.LecturerID) {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (r fakeEnrollments) GetApprovedCourseIDs(ctx context.Context, tx *gorm.DB, studentID string) ([]uint, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var ids []uint
	for _, e := range r.f.enrollments {
		if e.StudentID == studentID && e.Status == models.EnrollmentApproved {
			ids = append(ids, e.CourseID)
		}
	}
	return ids, nil
}

func (r fakeEnrollments) IsApproved(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error) {
	e, err := r.GetByCourseAndStudent(ctx, tx, courseID, studentID)
	if repositories.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Status == models.EnrollmentApproved, nil
}

// ===== assignments =====

type fakeAssignments struct{ f *fakeStore }

func (r fakeAssignments) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	assignment.ID = r.f.id()
	cp := *assignment
	r.f.assignments[assignment.ID] = &cp
	return nil
}

func (r fakeAssignments) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.assignments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r fakeAssignments) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.assignments[assignment.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *assignment
	r.f.assignments[assignment.ID] = &cp
	return nil
}

func (r fakeAssignments) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.assignments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.assignments, id)
	return nil
}

func (r fakeAssignments) List(ctx context.Context, tx *gorm.DB, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := []*models.Assignment{}
	for _, a := range r.f.assignments {
		if filters.CourseID != nil && a.CourseID != *filters.CourseID {
			continue
		}
		if filters.CourseIDs != nil && !slices.Contains(filters.CourseIDs, a.CourseID) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

// ===== submissions =====

type fakeSubmissions struct{ f *fakeStore }

func (r fakeSubmissions) Upsert(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, s := range r.f.submissions {
		if s.AssignmentID == submission.AssignmentID && s.StudentID == submission.StudentID {
			s.FileURL = submission.FileURL
			s.Content = submission.Content
			s.SubmittedAt = submission.SubmittedAt
			*submission = *s
			return nil
		}
	}
	submission.ID = r.f.id()
	cp := *submission
	r.f.submissions[submission.ID] = &cp
	return nil
}

func (r fakeSubmissions) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	s, ok := r.f.submissions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r fakeSubmissions) GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID uint, studentID string) (*models.Submission, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, s := range r.f.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeSubmissions) Grade(ctx context.Context, tx *gorm.DB, id uint, score float64, feedback *string, graderID string, gradedAt time.Time) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.gradeCalls++
	s, ok := r.f.submissions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	s.Score = &score
	s.Feedback = feedback
	s.GradedBy = &graderID
	s.GradedAt = &gradedAt
	return nil
}

func (r fakeSubmissions) List(ctx context.Context, tx *gorm.DB, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Submission
	for _, s := range r.f.submissions {
		if filters.AssignmentID != nil && s.AssignmentID != *filters.AssignmentID {
			continue
		}
		if filters.StudentID != nil && s.StudentID != *filters.StudentID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (r fakeSubmissions) GetByStudentForAssignments(ctx context.Context, tx *gorm.DB, studentID string, assignmentIDs []uint) (map[uint]*models.Submission, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make(map[uint]*models.Submission)
	for _, s := range r.f.submissions {
		if s.StudentID == studentID && slices.Contains(assignmentIDs, s.AssignmentID) {
			cp := *s
			out[s.AssignmentID] = &cp
		}
	}
	return out, nil
}

func (r fakeSubmissions) GetGradebook(ctx context.Context, tx *gorm.DB, courseID uint) ([]repositories.GradebookEntry, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []repositories.GradebookEntry
	for _, s := range r.f.submissions {
		a := r.f.assignments[s.AssignmentID]
		if a == nil || a.CourseID != courseID {
			continue
		}
		out = append(out, repositories.GradebookEntry{StudentID: s.StudentID, AssignmentID: s.AssignmentID, Score: s.Score})
	}
	return out, nil
}

// ===== announcements =====

type fakeAnnouncements struct{ f *fakeStore }

func (r fakeAnnouncements) Create(ctx context.Context, tx *gorm.DB, announcement *models.Announcement) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	announcement.ID = r.f.id()
	cp := *announcement
	r.f.announcements[announcement.ID] = &cp
	return nil
}

func (r fakeAnnouncements) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Announcement, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.announcements[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r fakeAnnouncements) Update(ctx context.Context, tx *gorm.DB, announcement *models.Announcement) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.announcements[announcement.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *announcement
	r.f.announcements[announcement.ID] = &cp
	return nil
}

func (r fakeAnnouncements) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.AnnouncementStatus) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.announcements[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if a.Status != from {
		return repositories.ErrStaleState
	}
	a.Status = to
	return nil
}

func (r fakeAnnouncements) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.announcements[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.announcements, id)
	return nil
}

func (r fakeAnnouncements) List(ctx context.Context, tx *gorm.DB, filters repositories.AnnouncementFilters) ([]*models.Announcement, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Announcement
	for _, a := range r.f.announcements {
		if filters.Visibility != nil && !isAnnouncementVisible(a, filters.Visibility) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

// ===== users & roles =====

type fakeUsers struct{ f *fakeStore }

func (r fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	u, ok := r.f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	if role, ok := r.f.roles[id]; ok {
		cp.Role = role
	} else {
		cp.Role = models.DefaultRole
	}
	return &cp, nil
}

func (r fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, u := range r.f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := r.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r fakeUsers) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	return r.Search(ctx, filters.Query, filters)
}

func (r fakeUsers) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	r.f.mu.Lock()
	var ids []string
	for id, u := range r.f.users {
		if query != "" && !strings.Contains(strings.ToLower(u.FullName+" "+u.Email), strings.ToLower(query)) {
			continue
		}
		if filters.Role != nil && r.f.roles[id] != *filters.Role {
			continue
		}
		ids = append(ids, id)
	}
	r.f.mu.Unlock()
	sort.Strings(ids)
	users, _ := r.GetByIDs(ctx, ids)
	return paginate(users, filters.Limit, filters.Offset), int64(len(users)), nil
}

func (r fakeUsers) ExistsByID(ctx context.Context, id string) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	_, ok := r.f.users[id]
	return ok, nil
}

func (r fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r fakeUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.roles[id] == role, nil
}

func (r fakeUsers) Create(ctx context.Context, identity repositories.NewIdentity) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.identityMutations++
	for _, u := range r.f.users {
		if u.Email == identity.Email {
			return nil, repositories.ErrDuplicate
		}
	}
	u := &models.User{ID: "u-" + identity.Email, Email: identity.Email, FullName: identity.FullName, Role: models.DefaultRole}
	r.f.users[u.ID] = u
	r.f.passwords[u.ID] = identity.Password
	cp := *u
	return &cp, nil
}

func (r fakeUsers) Delete(ctx context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.identityMutations++
	if _, ok := r.f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.users, id)
	delete(r.f.passwords, id)
	return nil
}

func (r fakeUsers) SetPassword(ctx context.Context, id, newPassword string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.identityMutations++
	if _, ok := r.f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	r.f.passwords[id] = newPassword
	return nil
}

func (r fakeUsers) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	return r.SetPassword(ctx, id, newPassword)
}

func (r fakeUsers) UpdateProfile(ctx context.Context, id string, update repositories.ProfileUpdate) (*models.User, error) {
	r.f.mu.Lock()
	u, ok := r.f.users[id]
	if ok {
		if update.FullName != nil {
			u.FullName = *update.FullName
		}
		if update.AvatarURL != nil {
			u.AvatarURL = update.AvatarURL
		}
	}
	r.f.mu.Unlock()
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r fakeUsers) InvalidateCache(ctx context.Context, id string) {}

type fakeRoles struct{ f *fakeStore }

func (r fakeRoles) GetRole(ctx context.Context, tx *gorm.DB, userID string) (models.UserRole, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	role, ok := r.f.roles[userID]
	if !ok {
		return "", repositories.ErrNotFound
	}
	return role, nil
}

func (r fakeRoles) GetRoles(ctx context.Context, tx *gorm.DB, userIDs []string) (map[string]models.UserRole, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make(map[string]models.UserRole, len(userIDs))
	for _, id := range userIDs {
		if role, ok := r.f.roles[id]; ok {
			out[id] = role
		}
	}
	return out, nil
}

func (r fakeRoles) SetRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.setRoleErr != nil {
		return r.f.setRoleErr
	}
	r.f.roles[userID] = role
	return nil
}

func (r fakeRoles) EnsureRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) (models.UserRole, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if existing, ok := r.f.roles[userID]; ok {
		return existing, nil
	}
	r.f.roles[userID] = role
	return role, nil
}

func (r fakeRoles) Delete(ctx context.Context, tx *gorm.DB, userID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.roles[userID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.roles, userID)
	return nil
}

func (r fakeRoles) ListUserIDs(ctx context.Context, tx *gorm.DB, role models.UserRole, limit, offset int) ([]string, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var ids []string
	for id, rl := range r.f.roles {
		if rl == role {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return paginate(ids, limit, offset), int64(len(ids)), nil
}

func (r fakeRoles) CountByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) (int64, error) {
	_, total, err := r.ListUserIDs(ctx, tx, role, 0, 0)
	return total, err
}

// ===== dashboard =====

type fakeDashboard struct{ f *fakeStore }

func (r fakeDashboard) GetAdminStats(ctx context.Context, tx *gorm.DB) (*repositories.AdminStats, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	stats := &repositories.AdminStats{TotalCourses: int64(len(r.f.courses))}
	for _, c := range r.f.courses {
		if c.Status == models.CourseStatusPending {
			stats.PendingCourses++
		}
	}
	return stats, nil
}

func (r fakeDashboard) GetLecturerStats(ctx context.Context, tx *gorm.DB, lecturerID string) (*repositories.LecturerStats, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	stats := &repositories.LecturerStats{}
	for _, c := range r.f.courses {
		if c.IsOwnedBy(lecturerID) {
			stats.TotalCourses++
		}
	}
	return stats, nil
}

func (r fakeDashboard) GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string, now time.Time) (*repositories.StudentStats, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	stats := &repositories.StudentStats{}
	var sum float64
	for _, s := range r.f.submissions {
		if s.StudentID != studentID {
			continue
		}
		stats.SubmittedCount++
		if s.Score != nil {
			stats.GradedSubmissions++
			sum += *s.Score
		}
	}
	if stats.GradedSubmissions > 0 {
		avg := sum / float64(stats.GradedSubmissions)
		stats.AverageScore = &avg
	}
	return stats, nil
}

// ===== fixtures =====

type testEnv struct {
	store     *fakeStore
	publisher *events.MockEventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		store:     newFakeStore(),
		publisher: events.NewMockEventPublisher(logger),
		logger:    logger,
		validator: validator.New(),
	}
}

func (e *testEnv) courses() CourseService {
	return NewCourseService(e.store, nil, e.logger, e.validator, e.publisher)
}

func (e *testEnv) enrollments() EnrollmentService {
	return NewEnrollmentService(e.store, nil, e.logger, e.validator, e.publisher)
}

func (e *testEnv) assignments() AssignmentService {
	return NewAssignmentService(e.store, nil, e.logger, e.validator, e.publisher)
}

func (e *testEnv) announcements() AnnouncementService {
	return NewAnnouncementService(e.store, nil, e.logger, e.validator, e.publisher)
}

func (e *testEnv) accounts() AccountService {
	return NewAccountService(e.store, e.logger, e.validator, e.publisher)
}

func (e *testEnv) users() UserService {
	return NewUserService(e.store, e.logger, e.validator)
}

func ptr[T any](v T) *T {
	return &v
}
