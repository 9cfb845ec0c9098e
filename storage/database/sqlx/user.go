package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     sql.NullString `db:"username"`
	Email        sql.NullString `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func newUserRow(u user.User) userRow {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           u.ID,
		Name:         u.Name,
		Username:     nullString(u.Username),
		Email:        nullString(u.Email),
		IsActive:     u.IsActive,
		Roles:        roles,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    nullTime(u.LastLogin),
	}
}

func (r userRow) user() user.User {
	roles := []string(r.Roles)
	if roles == nil {
		roles = []string{}
	}
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    fromNullTime(r.LastLogin),
	}
}

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

var userOrderColumns = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"is_active":  "is_active",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var w where
	w.add("((? <> '' AND username = ?) OR (? <> '' AND email = ?))", username, username, email, email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("NOT (id = ANY(?::uuid[]))", pq.Array(ids))
	}
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM "user"`+w.String()+` LIMIT 2`, w.args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = newID()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (`+userColumns+`)
		VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`,
		newUserRow(usr))
	switch {
	case isUniqueViolation(err, "user_username_key"):
		return user.User{}, user.ErrUsernameExists
	case isUniqueViolation(err, "user_email_key"):
		return user.User{}, user.ErrEmailExists
	case err != nil:
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) selectUsers(ctx context.Context, query string, args ...interface{}) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	return repo.selectUsers(ctx, `SELECT `+userColumns+` FROM "user" ORDER BY created_at`)
}

func (repo *userRepository) get(ctx context.Context, cond string, args ...interface{}) (user.User, error) {
	var r userRow
	err := repo.db.GetContext(ctx, &r, `SELECT `+userColumns+` FROM "user" WHERE `+cond+` LIMIT 1`, args...)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return r.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.get(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, "username = $1", username)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, "email = $1", email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, "username = $1 OR email = $1", username)
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	var w where
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", pattern, pattern, pattern)
	}
	if len(filter.Roles) > 0 {
		w.add("roles && ?", pq.Array(filter.Roles))
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= ?", filter.CreatedTo)
	}
	q := `SELECT ` + userColumns + ` FROM "user"` + w.String() + orderBy(orderings, userOrderColumns, "created_at")
	return repo.selectUsers(ctx, q, w.args...)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	row := newUserRow(usr)
	sets := `name = :name, username = :username, email = :email, updated_at = :updated_at`
	if usr.Roles != nil {
		sets += `, roles = :roles`
	}
	if usr.PasswordHash != nil {
		sets += `, password_hash = :password_hash`
	}
	if isActive != nil {
		row.IsActive = *isActive
		sets += `, is_active = :is_active`
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE "user" SET `+sets+` WHERE id = :id`, row)
	switch {
	case isUniqueViolation(err, "user_username_key"):
		return user.User{}, user.ErrUsernameExists
	case isUniqueViolation(err, "user_email_key"):
		return user.User{}, user.ErrEmailExists
	case err != nil:
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE "user" SET last_login = $1 WHERE id = $2`, at, id)
	if err != nil {
		return errors.Wrap(err, "updating last login")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
