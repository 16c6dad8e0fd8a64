package mongostore

import (
	"context"
	"time"

	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Firstname string             `bson:"firstname"`
	Lastname  string             `bson:"lastname"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password,omitempty"`
	Role      model.Role         `bson:"role"`
	Active    bool               `bson:"active"`

	ActivationAccountToken       *string    `bson:"activation_account_token,omitempty"`
	ActivationAccountTokenExpire *time.Time `bson:"activation_account_token_expire,omitempty"`
	PasswordResetToken           *string    `bson:"password_reset_token,omitempty"`
	PasswordResetExpire          *time.Time `bson:"password_reset_expire,omitempty"`
	EmailResetToken              *string    `bson:"email_reset_token,omitempty"`
	EmailResetExpire             *time.Time `bson:"email_reset_expire,omitempty"`

	AccountLocked       bool       `bson:"account_locked"`
	AccountLockedExpire *time.Time `bson:"account_locked_expire,omitempty"`
	AccountDisabled     bool       `bson:"account_disabled"`
	DisableAccountAt    *time.Time `bson:"disable_account_at,omitempty"`
	LoginFailures       *int       `bson:"login_failures,omitempty"`

	PasswordChangeAt *time.Time `bson:"password_change_at,omitempty"`
	EmailChangeAt    *time.Time `bson:"email_change_at,omitempty"`
	CreatedAt        time.Time  `bson:"created_at"`
}

func fromUser(u *model.User) (*userDoc, error) {
	d := &userDoc{
		Firstname:                    u.Firstname,
		Lastname:                     u.Lastname,
		Email:                        u.Email,
		Password:                     u.Password,
		Role:                         u.Role,
		Active:                       u.Active,
		ActivationAccountToken:       u.ActivationAccountToken,
		ActivationAccountTokenExpire: u.ActivationAccountTokenExpire,
		PasswordResetToken:           u.PasswordResetToken,
		PasswordResetExpire:          u.PasswordResetExpire,
		EmailResetToken:              u.EmailResetToken,
		EmailResetExpire:             u.EmailResetExpire,
		AccountLocked:                u.AccountLocked,
		AccountLockedExpire:          u.AccountLockedExpire,
		AccountDisabled:              u.AccountDisabled,
		DisableAccountAt:             u.DisableAccountAt,
		LoginFailures:                u.LoginFailures,
		PasswordChangeAt:             u.PasswordChangeAt,
		EmailChangeAt:                u.EmailChangeAt,
		CreatedAt:                    u.CreatedAt,
	}

	if u.ID != "" {
		oid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return nil, err
		}
		d.ID = oid
	}

	return d, nil
}

func (d *userDoc) model() *model.User {
	return &model.User{
		ID:                           hexOrEmpty(d.ID),
		Firstname:                    d.Firstname,
		Lastname:                     d.Lastname,
		Email:                        d.Email,
		Password:                     d.Password,
		Role:                         d.Role,
		Active:                       d.Active,
		ActivationAccountToken:       d.ActivationAccountToken,
		ActivationAccountTokenExpire: d.ActivationAccountTokenExpire,
		PasswordResetToken:           d.PasswordResetToken,
		PasswordResetExpire:          d.PasswordResetExpire,
		EmailResetToken:              d.EmailResetToken,
		EmailResetExpire:             d.EmailResetExpire,
		AccountLocked:                d.AccountLocked,
		AccountLockedExpire:          d.AccountLockedExpire,
		AccountDisabled:              d.AccountDisabled,
		DisableAccountAt:             d.DisableAccountAt,
		LoginFailures:                d.LoginFailures,
		PasswordChangeAt:             d.PasswordChangeAt,
		EmailChangeAt:                d.EmailChangeAt,
		CreatedAt:                    d.CreatedAt,
	}
}

var withoutPassword = bson.M{model.FieldPassword: 0}

type Users struct {
	c *mongo.Collection
}

func NewUsers(c *mongo.Collection) *Users {
	return &Users{c: c}
}

func (s *Users) findOne(ctx context.Context, filter bson.M, opts []store.FindOption) (*model.User, error) {
	o := options.FindOne()
	if !store.BuildFindOptions(opts...).WithPassword {
		o.SetProjection(withoutPassword)
	}

	var d userDoc
	if err := s.c.FindOne(ctx, filter, o).Decode(&d); err != nil {
		return nil, translate(err)
	}

	return d.model(), nil
}

func (s *Users) Create(ctx context.Context, u *model.User) error {
	d, err := fromUser(u)
	if err != nil {
		return err
	}

	res, err := s.c.InsertOne(ctx, d)
	if err != nil {
		return translate(err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}

	return nil
}

func (s *Users) ByID(ctx context.Context, id string, opts ...store.FindOption) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	return s.findOne(ctx, bson.M{"_id": oid}, opts)
}

func (s *Users) ByEmail(ctx context.Context, email string, opts ...store.FindOption) (*model.User, error) {
	return s.findOne(ctx, bson.M{model.FieldEmail: email}, opts)
}

func (s *Users) ByToken(ctx context.Context, l store.TokenLookup, opts ...store.FindOption) (*model.User, error) {
	tokenField, expireField := l.Kind.Fields()

	filter := bson.M{
		tokenField:  l.Hashed,
		expireField: bson.M{"$gt": l.Now},
	}
	if l.Email != "" {
		filter[model.FieldEmail] = l.Email
	}

	return s.findOne(ctx, filter, opts)
}

func (s *Users) List(ctx context.Context) ([]model.User, error) {
	o := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: model.FieldCreatedAt, Value: -1}})

	cur, err := s.c.Find(ctx, bson.M{}, o)
	if err != nil {
		return nil, err
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].model())
	}

	return users, nil
}

func (s *Users) AdminEmails(ctx context.Context) ([]string, []string, error) {
	o := options.Find().SetProjection(bson.M{model.FieldEmail: 1})

	cur, err := s.c.Find(ctx, bson.M{model.FieldRole: model.RoleAdmin}, o)
	if err != nil {
		return nil, nil, err
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(docs))
	emails := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
		emails = append(emails, d.Email)
	}

	return ids, emails, nil
}

func (s *Users) Update(ctx context.Context, id string, p *store.Patch) (*model.User, error) {
	if p.Empty() {
		return s.ByID(ctx, id)
	}

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	o := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var d userDoc
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update(p, ""), o).Decode(&d); err != nil {
		return nil, translate(err)
	}

	return d.model(), nil
}

func (s *Users) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	o := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var d userDoc
	inc := bson.M{"$inc": bson.M{model.FieldLoginFailures: 1}}
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, inc, o).Decode(&d); err != nil {
		return nil, translate(err)
	}

	u := d.model()
	if u.Failures() < threshold {
		return u, nil
	}

	// Only the request that crossed the threshold finds the counter still set
	lock := bson.M{
		"$set": bson.M{
			model.FieldAccountLocked:       true,
			model.FieldAccountLockedExpire: lockUntil,
		},
		"$unset": bson.M{model.FieldLoginFailures: ""},
	}
	filter := bson.M{"_id": oid, model.FieldLoginFailures: bson.M{"$gte": threshold}}
	if _, err := s.c.UpdateOne(ctx, filter, lock); err != nil {
		return nil, err
	}

	return s.ByID(ctx, id)
}

func (s *Users) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Users) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	for _, kind := range []store.TokenKind{store.PasswordResetToken, store.EmailResetToken} {
		tokenField, expireField := kind.Fields()

		res, err := s.c.UpdateMany(ctx,
			bson.M{expireField: bson.M{"$lt": now}},
			bson.M{"$unset": bson.M{tokenField: "", expireField: ""}},
		)
		if err != nil {
			return total, err
		}

		total += res.ModifiedCount
	}

	return total, nil
}
