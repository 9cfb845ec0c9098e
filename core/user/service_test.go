package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/services/validation"
	inmemdb "github.com/rcarvalhopiaget/escutapiaget-sub000/storage/database/inmem"
	testutil "github.com/rcarvalhopiaget/escutapiaget-sub000/tests"
)

const pwd = "Ouv1d0r!a"

func newService() (*user.Service, user.Repository) {
	validate, _ := validation.New()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo, validate, core.NopLogger{}), repo
}

func fieldTags(t *testing.T, err error) map[string]string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "%v", err)
	tags := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		tags[fe.Field()] = fe.Tag()
	}
	return tags
}

func TestService_Create(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:            " Maria Souza ",
		Username:        "MSouza",
		Email:           "Maria@Piaget.br",
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{user.RoleStaff},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "Maria Souza", usr.Name)
	assert.Equal(t, "msouza", usr.Username)
	assert.Equal(t, "maria@piaget.br", usr.Email)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsStaff())
	assert.False(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword(pwd))

	_, err = svc.Create(ctx, user.NewUser{
		Name: "Other", Username: "msouza", Password: pwd, PasswordConfirm: pwd,
	})
	require.True(t, core.IsValidationError(err))
	assert.True(t, errors.Is(err, user.ErrUsernameExists))

	_, err = svc.Create(ctx, user.NewUser{
		Name: "Other", Email: "maria@piaget.br", Password: pwd, PasswordConfirm: pwd,
	})
	assert.True(t, errors.Is(err, user.ErrEmailExists))
}

func TestService_Create_validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name string
		nu   user.NewUser
		want map[string]string
	}{
		{
			name: "username or email",
			nu:   user.NewUser{Name: "Ana", Password: pwd, PasswordConfirm: pwd},
			want: map[string]string{"username": "username_or_email", "email": "username_or_email"},
		},
		{
			name: "bad role",
			nu:   user.NewUser{Name: "Ana", Email: "ana@piaget.br", Password: pwd, PasswordConfirm: pwd, Roles: []string{"student:"}},
			want: map[string]string{"roles": "allroles"},
		},
		{
			name: "confirm mismatch",
			nu:   user.NewUser{Name: "Ana", Email: "ana@piaget.br", Password: pwd, PasswordConfirm: pwd + "x"},
			want: map[string]string{"password_confirm": "eqfield"},
		},
		{name: "short", nu: newUser("Ab1!"), want: map[string]string{"password": "pwdminlen"}},
		{name: "space", nu: newUser("Abcd 123!"), want: map[string]string{"password": "pwdnospace"}},
		{name: "numeric", nu: newUser("12345678"), want: map[string]string{"password": "pwdnotallnum"}},
		{name: "complexity", nu: newUser("abcdefgh1"), want: map[string]string{"password": "pwdcplx"}},
		{name: "similar", nu: newUser("Anabela#1"), want: map[string]string{"password": "pwdtoosim"}},
		{name: "common", nu: newUser("P@ssw0rd1"), want: map[string]string{"password": "pwdnocommon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.nu)
			assert.Equal(t, tt.want, fieldTags(t, err))
		})
	}
}

func newUser(password string) user.NewUser {
	return user.NewUser{
		Name:            "Anabela",
		Username:        "anabela",
		Password:        password,
		PasswordConfirm: password,
	}
}

func TestService_Update(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Ana", "anauser", "ana@piaget.br", pwd, []string{user.RoleStaff}, true)
	testutil.CreateUser(t, repo, "Bia", "biauser", "bia@piaget.br", pwd, nil, true)

	inactive := false
	got, err := svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Ana Lima", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", got.Name)
	assert.Equal(t, "anauser", got.Username)
	assert.Equal(t, []string{user.RoleStaff}, got.Roles)
	assert.False(t, got.IsActive)
	assert.NoError(t, got.CheckPassword(pwd))

	_, err = svc.Update(ctx, usr.ID, user.UpdateUser{Username: "biauser"})
	assert.True(t, errors.Is(err, user.ErrUsernameExists))

	newPwd := "N0va$enha"
	_, err = svc.Update(ctx, usr.ID, user.UpdateUser{Password: newPwd})
	assert.Equal(t, map[string]string{"password_confirm": "required_with"}, fieldTags(t, err))

	got, err = svc.Update(ctx, usr.ID, user.UpdateUser{Password: newPwd, PasswordConfirm: newPwd})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))

	_, err = svc.Update(ctx, "missing", user.UpdateUser{})
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_ResetPassword(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Ana", "anauser", "ana@piaget.br", pwd, nil, true)

	err := svc.ResetPassword(ctx, usr.ID, user.SetPassword{Password: "short", PasswordConfirm: "short"})
	assert.Equal(t, map[string]string{"password": "pwdminlen"}, fieldTags(t, err))

	require.NoError(t, svc.ResetPassword(ctx, usr.ID, user.SetPassword{Password: "Outr@123", PasswordConfirm: "Outr@123"}))
	got, err := svc.GetByUsername(ctx, "ANAUSER")
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("Outr@123"))
}

func TestService_SetLastLogin(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Ana", "anauser", "ana@piaget.br", pwd, nil, true)

	require.NoError(t, svc.SetLastLogin(ctx, &usr))
	assert.False(t, usr.LastLogin.IsZero())

	got, err := svc.GetByUsernameOrEmail(ctx, " Ana@Piaget.br ")
	require.NoError(t, err)
	assert.Equal(t, usr.LastLogin, got.LastLogin)
}

func TestService_Filter(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	now := time.Now().UTC()
	admin := testutil.CreateUser(t, repo, "Admin", "adminuser", "admin@piaget.br", "", []string{user.RoleAdminOwner}, true, now.Add(-3*time.Hour))
	staff := testutil.CreateUser(t, repo, "Staff", "staffuser", "staff@piaget.br", "", []string{user.RoleStaff}, true, now.Add(-2*time.Hour))
	old := testutil.CreateUser(t, repo, "Former", "formeruser", "former@piaget.br", "", []string{user.RoleStaff}, false, now.Add(-time.Hour))

	inactive := false
	tests := []struct {
		name      string
		filter    user.QueryFilter
		orderings []core.DBOrdering
		want      []user.User
	}{
		{name: "all", want: []user.User{admin, staff, old}},
		{name: "search", filter: user.QueryFilter{Search: " STAFF@ "}, want: []user.User{staff}},
		{name: "role", filter: user.QueryFilter{Roles: []string{user.RoleStaff}}, want: []user.User{staff, old}},
		{name: "inactive", filter: user.QueryFilter{IsActive: &inactive}, want: []user.User{old}},
		{name: "created from", filter: user.QueryFilter{CreatedFrom: now.Add(-90 * time.Minute)}, want: []user.User{old}},
		{name: "order name desc", orderings: []core.DBOrdering{{Field: "name"}}, want: []user.User{staff, old, admin}},
		{name: "unknown ordering", orderings: []core.DBOrdering{{Field: "password_hash"}}, want: []user.User{admin, staff, old}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Filter(ctx, tt.filter, tt.orderings...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Delete(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	u1 := testutil.CreateUser(t, repo, "Ana", "anauser", "", "", nil, true)
	u2 := testutil.CreateUser(t, repo, "Bia", "biauser", "", "", nil, true)

	require.NoError(t, svc.Delete(ctx, u1.ID))
	all, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []user.User{u2}, all)
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 0, user.MaxRolePriority(nil))
	assert.Equal(t, 11, user.MaxRolePriority([]string{user.RoleStaff}))
	assert.Equal(t, 30, user.MaxRolePriority([]string{user.RoleStaff, user.RoleAdminOwner}))
}
