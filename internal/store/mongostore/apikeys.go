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

type apiKeySetDoc struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	UserID string             `bson:"user_id"`
	Keys   []apiKeyDoc        `bson:"keys"`
}

type apiKeyDoc struct {
	ID                 primitive.ObjectID `bson:"_id"`
	APIName            string             `bson:"api_name"`
	Key                string             `bson:"api_key,omitempty"`
	ExpiresAt          time.Time          `bson:"api_key_expire"`
	Active             bool               `bson:"active"`
	RenewalToken       *string            `bson:"renewal_token,omitempty"`
	RenewalTokenExpire *time.Time         `bson:"renewal_token_expire,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
}

func (d *apiKeyDoc) model(userID string) model.APIKey {
	return model.APIKey{
		ID:                 d.ID.Hex(),
		UserID:             userID,
		APIName:            d.APIName,
		Key:                d.Key,
		ExpiresAt:          d.ExpiresAt,
		Active:             d.Active,
		RenewalToken:       d.RenewalToken,
		RenewalTokenExpire: d.RenewalTokenExpire,
		CreatedAt:          d.CreatedAt,
	}
}

func (d *apiKeySetDoc) model() *model.APIKeySet {
	set := &model.APIKeySet{
		ID:     d.ID.Hex(),
		UserID: d.UserID,
		Keys:   make([]model.APIKey, 0, len(d.Keys)),
	}
	for i := range d.Keys {
		set.Keys = append(set.Keys, d.Keys[i].model(d.UserID))
	}
	return set
}

func (d *apiKeySetDoc) key(oid primitive.ObjectID) (*model.APIKey, error) {
	for i := range d.Keys {
		if d.Keys[i].ID == oid {
			k := d.Keys[i].model(d.UserID)
			return &k, nil
		}
	}
	return nil, store.ErrNotFound
}

type APIKeys struct {
	c *mongo.Collection
}

func NewAPIKeys(c *mongo.Collection) *APIKeys {
	return &APIKeys{c: c}
}

func (s *APIKeys) ByUser(ctx context.Context, userID string) (*model.APIKeySet, error) {
	var d apiKeySetDoc
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&d); err != nil {
		return nil, translate(err)
	}

	return d.model(), nil
}

func (s *APIKeys) List(ctx context.Context) ([]model.APIKeySet, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var docs []apiKeySetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	sets := make([]model.APIKeySet, 0, len(docs))
	for i := range docs {
		sets = append(sets, *docs[i].model())
	}

	return sets, nil
}

func (s *APIKeys) Push(ctx context.Context, userID string, k *model.APIKey) error {
	d := apiKeyDoc{
		ID:                 primitive.NewObjectID(),
		APIName:            k.APIName,
		Key:                k.Key,
		ExpiresAt:          k.ExpiresAt,
		Active:             k.Active,
		RenewalToken:       k.RenewalToken,
		RenewalTokenExpire: k.RenewalTokenExpire,
		CreatedAt:          k.CreatedAt,
	}

	// When the name is already taken the filter misses, the upsert tries to
	// insert a second document for the user and the unique user_id index
	// rejects it. Concurrent duplicates resolve the same way.
	filter := bson.M{
		"user_id":       userID,
		"keys.api_name": bson.M{"$ne": k.APIName},
	}
	push := bson.M{"$push": bson.M{"keys": d}}

	if _, err := s.c.UpdateOne(ctx, filter, push, options.Update().SetUpsert(true)); err != nil {
		return translate(err)
	}

	k.ID = d.ID.Hex()
	k.UserID = userID
	return nil
}

func (s *APIKeys) UpdateKey(ctx context.Context, userID, keyID string, p *store.Patch) (*model.APIKey, error) {
	oid, err := objectID(keyID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"user_id": userID, "keys._id": oid}

	var d apiKeySetDoc
	if p.Empty() {
		err = s.c.FindOne(ctx, filter).Decode(&d)
	} else {
		o := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = s.c.FindOneAndUpdate(ctx, filter, update(p, "keys.$."), o).Decode(&d)
	}
	if err != nil {
		return nil, translate(err)
	}

	return d.key(oid)
}

func (s *APIKeys) ByRenewalToken(ctx context.Context, userID, hashed string, now time.Time) (*model.APIKey, error) {
	filter := bson.M{
		"user_id": userID,
		"keys": bson.M{"$elemMatch": bson.M{
			model.FieldRenewalToken:       hashed,
			model.FieldRenewalTokenExpire: bson.M{"$gt": now},
			model.FieldAPIKeyActive:       true,
		}},
	}

	var d apiKeySetDoc
	if err := s.c.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate(err)
	}

	for i := range d.Keys {
		k := d.Keys[i]
		if k.Active && k.RenewalToken != nil && *k.RenewalToken == hashed &&
			k.RenewalTokenExpire != nil && k.RenewalTokenExpire.After(now) {
			m := k.model(d.UserID)
			return &m, nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *APIKeys) Pull(ctx context.Context, userID, keyID string) (int, error) {
	oid, err := objectID(keyID)
	if err != nil {
		return 0, err
	}

	o := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d apiKeySetDoc
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "keys._id": oid},
		bson.M{"$pull": bson.M{"keys": bson.M{"_id": oid}}},
		o,
	).Decode(&d)
	if err != nil {
		return 0, translate(err)
	}

	if len(d.Keys) > 0 {
		return len(d.Keys), nil
	}

	// A concurrent push may have refilled the set in the meantime
	_, err = s.c.DeleteOne(ctx, bson.M{"_id": d.ID, "keys": bson.M{"$size": 0}})
	return 0, err
}

func (s *APIKeys) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

func (s *APIKeys) ClearExpiredRenewals(ctx context.Context, now time.Time) (int64, error) {
	expired := bson.M{"$lt": now}

	o := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"k." + model.FieldRenewalTokenExpire: expired}},
	})

	res, err := s.c.UpdateMany(ctx,
		bson.M{"keys." + model.FieldRenewalTokenExpire: expired},
		bson.M{"$unset": bson.M{
			"keys.$[k]." + model.FieldRenewalToken:       "",
			"keys.$[k]." + model.FieldRenewalTokenExpire: "",
		}},
		o,
	)
	if err != nil {
		return 0, err
	}

	return res.ModifiedCount, nil
}
