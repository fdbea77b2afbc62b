package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
)

type stubAccounts struct {
	created  []*services.CreateAccountRequest
	deleted  []string
	resets   map[string]string
	actorIDs []string
}

func (s *stubAccounts) CreateUser(_ context.Context, req *services.CreateAccountRequest, actorID string) (*models.User, error) {
	s.actorIDs = append(s.actorIDs, actorID)
	s.created = append(s.created, req)
	return &models.User{ID: "u-1", Email: req.Email, Role: req.Role}, nil
}

func (s *stubAccounts) DeleteUser(_ context.Context, userID, actorID string) error {
	s.actorIDs = append(s.actorIDs, actorID)
	if userID == "admin-2" {
		return services.NewBusinessRuleError("admin_delete", "admin accounts cannot be deleted", nil)
	}
	s.deleted = append(s.deleted, userID)
	return nil
}

func (s *stubAccounts) ResetPassword(_ context.Context, userID string, req *services.ResetPasswordRequest, actorID string) (*models.User, error) {
	s.actorIDs = append(s.actorIDs, actorID)
	s.resets[userID] = req.NewPassword
	return &models.User{ID: userID, Email: userID + "@example.edu"}, nil
}

type stubUsers struct {
	services.UserService
	lastQuery string
	lastRole  *models.UserRole
}

func (s *stubUsers) List(_ context.Context, filters repositories.UserFilters, _ string) (*services.UserListResponse, error) {
	s.lastRole = filters.Role
	return &services.UserListResponse{
		Users: []*models.User{{ID: "s-1", FullName: "Sam", Email: "sam@example.edu", Role: models.RoleStudent}},
		Total: 1,
	}, nil
}

func (s *stubUsers) Search(ctx context.Context, query string, filters repositories.UserFilters, actorID string) (*services.UserListResponse, error) {
	s.lastQuery = query
	return s.List(ctx, filters, actorID)
}

type stubRoles struct {
	repositories.RoleRepository
	roles map[string]models.UserRole
}

func (s *stubRoles) SetRole(_ context.Context, _ *gorm.DB, userID string, role models.UserRole) error {
	s.roles[userID] = role
	return nil
}

type stubUserRepo struct {
	repositories.UserRepository
	invalidated []string
}

func (s *stubUserRepo) InvalidateCache(_ context.Context, id string) {
	s.invalidated = append(s.invalidated, id)
}

type stubRepo struct {
	repositories.Repository
	roles *stubRoles
	users *stubUserRepo
}

func (s *stubRepo) Role() repositories.RoleRepository { return s.roles }
func (s *stubRepo) User() repositories.UserRepository { return s.users }

type cliTest struct {
	name       string
	args       []string // without program name
	password   string
	wantErr    error
	wantErrStr string
}

func setup(t *testing.T) (*commandLine, *stubAccounts, *stubUsers, *stubRepo, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	accounts := &stubAccounts{resets: map[string]string{}}
	users := &stubUsers{}
	repo := &stubRepo{roles: &stubRoles{roles: map[string]models.UserRole{}}, users: &stubUserRepo{}}
	return &commandLine{
		accounts: accounts,
		users:    users,
		repo:     repo,
		actorID:  "admin-1",
		out:      out,
	}, accounts, users, repo, out
}

func runCases(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.password), nil }
			err := cli.run(context.Background(), append([]string{"lmsctl"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, _, _, out := setup(t)
	runCases(t, cli, []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "createuser")
}

func Test_commandLine_createuser(t *testing.T) {
	cli, accounts, _, _, out := setup(t)
	runCases(t, cli, []cliTest{
		{name: "missing email", args: []string{"createuser", "-name", "Jane"}, password: "s3cret-pass", wantErr: errHelp},
		{name: "empty password", args: []string{"createuser", "-email", "jane@example.edu", "-name", "Jane"}, wantErr: errHelp},
		{name: "ok", args: []string{"createuser", "-email", "jane@example.edu", "-name", "Jane", "-role", "lecturer"}, password: "s3cret-pass"},
	})

	require.Len(t, accounts.created, 1)
	assert.Equal(t, "s3cret-pass", accounts.created[0].Password)
	assert.Equal(t, models.RoleLecturer, accounts.created[0].Role)
	assert.Equal(t, []string{"admin-1"}, accounts.actorIDs)
	assert.Contains(t, out.String(), "Created jane@example.edu")
	assert.NotContains(t, out.String(), "s3cret-pass")
}

func Test_commandLine_deleteuser(t *testing.T) {
	cli, accounts, _, _, _ := setup(t)
	runCases(t, cli, []cliTest{
		{name: "missing id", args: []string{"deleteuser"}, wantErr: errHelp},
		{name: "admin target", args: []string{"deleteuser", "-id", "admin-2"}, wantErrStr: "business rule admin_delete violated: admin accounts cannot be deleted"},
		{name: "ok", args: []string{"deleteuser", "-id", "stud-1"}},
	})
	assert.Equal(t, []string{"stud-1"}, accounts.deleted)
}

func Test_commandLine_resetpassword(t *testing.T) {
	cli, accounts, _, _, _ := setup(t)
	runCases(t, cli, []cliTest{
		{name: "missing id", args: []string{"resetpassword"}, password: "longenough", wantErr: errHelp},
		{name: "ok", args: []string{"resetpassword", "-id", "stud-1"}, password: "longenough"},
	})
	assert.Equal(t, "longenough", accounts.resets["stud-1"])

	readPasswordFunc = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	err := cli.run(context.Background(), []string{"lmsctl", "resetpassword", "-id", "stud-1"})
	assert.EqualError(t, err, "not a terminal")
}

func Test_commandLine_users(t *testing.T) {
	cli, _, users, _, out := setup(t)
	runCases(t, cli, []cliTest{
		{name: "list", args: []string{"users", "-role", "Student"}},
		{name: "search", args: []string{"users", "-q", "sam"}},
	})
	assert.Equal(t, "sam", users.lastQuery)
	assert.Contains(t, out.String(), "sam@example.edu")
	assert.Contains(t, out.String(), "1 of 1 users")

	cli.actorID = ""
	err := cli.run(context.Background(), []string{"lmsctl", "users"})
	assert.EqualError(t, err, "LMSCTL_ACTOR_ID is not set")
}

func Test_commandLine_setrole(t *testing.T) {
	cli, _, _, repo, _ := setup(t)
	cli.actorID = ""
	runCases(t, cli, []cliTest{
		{name: "missing role", args: []string{"setrole", "-id", "u-9"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"setrole", "-id", "u-9", "-role", "owner"}, wantErrStr: `invalid role "owner"`},
		{name: "bootstrap admin", args: []string{"setrole", "-id", "u-9", "-role", "admin"}},
	})
	assert.Equal(t, models.RoleAdmin, repo.roles.roles["u-9"])
	assert.Equal(t, []string{"u-9"}, repo.users.invalidated)
}

type recordingCloser struct {
	closed int
}

func (r *recordingCloser) Close() error {
	r.closed++
	return nil
}

func Test_execute_closesOnEveryOutcome(t *testing.T) {
	logger = log.New(io.Discard, "", 0)

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{name: "success", args: []string{"lmsctl", "deleteuser", "-id", "stud-1"}, wantCode: 0},
		{name: "command error", args: []string{"lmsctl", "deleteuser", "-id", "admin-2"}, wantCode: 1},
		{name: "usage", args: []string{"lmsctl"}, wantCode: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _, _, _, _ := setup(t)
			publisher := &recordingCloser{}
			code := execute(context.Background(), cli, tt.args, publisher)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, 1, publisher.closed, "publisher must be closed before exit")
		})
	}
}
