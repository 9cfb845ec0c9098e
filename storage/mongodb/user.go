package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	IsActive     bool      `bson:"is_active"`
	Roles        []string  `bson:"roles"`
	PasswordHash []byte    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
	LastLogin    time.Time `bson:"last_login,omitempty"`
}

func newUserDoc(u user.User) userDoc {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		IsActive:     u.IsActive,
		Roles:        roles,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

func (d userDoc) user() user.User {
	roles := d.Roles
	if roles == nil {
		roles = []string{}
	}
	return user.User{
		ID:           d.ID,
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		IsActive:     d.IsActive,
		Roles:        roles,
		PasswordHash: d.PasswordHash,
		CreatedAt:    utc(d.CreatedAt),
		UpdatedAt:    utc(d.UpdatedAt),
		LastLogin:    utc(d.LastLogin),
	}
}

// duplicateUserErr tells which unique index a duplicate key error comes from.
func duplicateUserErr(err error) error {
	if strings.Contains(err.Error(), "username") {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection(userCollection)}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil
	}
	f := bson.M{"$or": or}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		f["_id"] = bson.M{"$nin": ids}
	}
	docs, err := repo.find(ctx, f, options.Find().SetLimit(2))
	if err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, d := range docs {
		if username != "" && d.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(docs) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = newID()
	}
	_, err := repo.coll.InsertOne(ctx, newUserDoc(usr))
	if isDuplicateKey(err) {
		return user.User{}, duplicateUserErr(err)
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]userDoc, error) {
	cur, err := repo.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (repo *userRepository) list(ctx context.Context, filter bson.M, sort bson.D) ([]user.User, error) {
	docs, err := repo.find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Wrap(err, "finding users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	return repo.list(ctx, bson.M{}, bson.D{{Key: "created_at", Value: 1}})
}

func (repo *userRepository) findOne(ctx context.Context, filter bson.M) (user.User, error) {
	var d userDoc
	err := repo.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return d.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.findOne(ctx, bson.M{"_id": id})
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.findOne(ctx, bson.M{"username": username})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.findOne(ctx, bson.M{"email": email})
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.findOne(ctx, bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": username}}})
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	f := bson.M{}
	if filter.Search != "" {
		re := searchRegex(filter.Search)
		f["$or"] = bson.A{bson.M{"name": re}, bson.M{"username": re}, bson.M{"email": re}}
	}
	if len(filter.Roles) > 0 {
		f["roles"] = bson.M{"$in": filter.Roles}
	}
	if filter.IsActive != nil {
		f["is_active"] = *filter.IsActive
	}
	createdRange(f, filter.CreatedFrom, filter.CreatedTo)
	return repo.list(ctx, f, sortDoc(orderings, bson.D{{Key: "created_at", Value: 1}}))
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	set := bson.M{
		"name":       usr.Name,
		"username":   usr.Username,
		"email":      usr.Email,
		"updated_at": usr.UpdatedAt,
	}
	if usr.Roles != nil {
		set["roles"] = usr.Roles
	}
	if usr.PasswordHash != nil {
		set["password_hash"] = usr.PasswordHash
	}
	if isActive != nil {
		set["is_active"] = *isActive
	}
	res, err := repo.coll.UpdateByID(ctx, usr.ID, bson.M{"$set": set})
	if isDuplicateKey(err) {
		return user.User{}, duplicateUserErr(err)
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := repo.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login": at}})
	if err != nil {
		return errors.Wrap(err, "updating last login")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
