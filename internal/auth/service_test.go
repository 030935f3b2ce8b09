package auth

import (
	"bytes"
	"context"
	"testing"
	"time"

	internaldb "examprep/internal/db"
	"examprep/internal/model"
	"examprep/internal/store"
	"examprep/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dbConn, err := internaldb.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConn.Close() })
	return NewService(store.New(dbConn), ServiceConfig{TokenSecret: "test-secret", BcryptCost: bcrypt.MinCost})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, model.UserInput{Username: "asha", Password: "secret1", Email: "asha@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.UserTypeStudent, u.UserType)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err = svc.Register(ctx, model.UserInput{Username: "asha", Password: "secret2", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Login(ctx, model.LoginInput{Username: "asha", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, model.LoginInput{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, model.LoginInput{Username: "asha", Password: "secret1"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(defaultTokenTTL), res.ExpiresAt, time.Minute)

	p, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: u.ID, Username: "asha", UserType: model.UserTypeStudent}, *p)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), model.UserInput{Username: "ab", Password: "123", Email: "nope", UserType: "guest"})
	verrs, ok := validation.As(err)
	require.True(t, ok)
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	assert.True(t, fields["username"])
	assert.True(t, fields["password"])
	assert.True(t, fields["email"])
	assert.True(t, fields["userType"])
}

func TestInactiveUserCannotLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, model.UserInput{Username: "ravi", Password: "secret1", Email: "ravi@example.com", UserType: "teacher"})
	require.NoError(t, err)
	assert.Equal(t, model.UserTypeTeacher, u.UserType)

	toggled, err := svc.ToggleActive(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	_, err = svc.Login(ctx, model.LoginInput{Username: "ravi", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestUpdateUserAndRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, model.UserInput{Username: "asha", Password: "secret1", Email: "asha@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, model.UserInput{Username: "ravi", Password: "secret1", Email: "ravi@example.com"})
	require.NoError(t, err)

	taken := "ravi"
	_, err = svc.UpdateUser(ctx, a.ID, model.UpdateUserInput{Username: &taken})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	password := "newsecret"
	board := "CBSE"
	updated, err := svc.UpdateUser(ctx, a.ID, model.UpdateUserInput{Password: &password, Board: &board})
	require.NoError(t, err)
	require.NotNil(t, updated.Board)
	assert.Equal(t, "CBSE", *updated.Board)

	_, err = svc.Login(ctx, model.LoginInput{Username: "asha", Password: "newsecret"})
	require.NoError(t, err)

	promoted, err := svc.ChangeRole(ctx, a.ID, model.UserRoleInput{UserType: "admin"})
	require.NoError(t, err)
	assert.Equal(t, model.UserTypeAdmin, promoted.UserType)

	admins := model.UserTypeAdmin
	listed, err := svc.ListUsers(ctx, model.UserFilter{UserType: &admins})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = svc.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserSpreadsheetRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, model.UserInput{Username: "asha", Password: "secret1", Email: "asha@example.com"})
	require.NoError(t, err)

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]any{
		{"username", "email", "password", "userType", "isActive"},
		{"asha", "asha@school.org", "", "TEACHER", "no"},
		{"ravi", "ravi@example.com", "secret1", "", ""},
		{"x", "bad", "1", "", ""},
		{"meera", "meera@example.com", "secret1", "", "maybe"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	report, err := svc.ImportUsersExcel(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 1, report.CreatedRows)
	assert.Equal(t, 1, report.UpdatedRows)
	assert.Equal(t, 2, report.FailedRows)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 4, report.Errors[0].Row)
	assert.Equal(t, 5, report.Errors[1].Row)

	asha, err := svc.store.FindUserByUsername(ctx, "asha")
	require.NoError(t, err)
	assert.Equal(t, "asha@school.org", asha.Email)
	assert.Equal(t, model.UserTypeTeacher, asha.UserType)
	assert.False(t, asha.IsActive)

	content, err := svc.ExportUsersExcel(ctx, model.UserFilter{})
	require.NoError(t, err)
	exported, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	got, err := exported.GetRows(exported.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, userSheetColumns, got[0])
	assert.Equal(t, "asha", got[1][0])
	assert.Equal(t, "", got[1][2])

	_, err = svc.ImportUsersExcel(ctx, bytes.NewReader([]byte("not a workbook")))
	assert.ErrorIs(t, err, ErrInvalidSpreadsheet)
}
