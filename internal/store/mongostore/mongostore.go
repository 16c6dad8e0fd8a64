// Package mongostore implements the store contracts on MongoDB. Keys and
// notifications live as arrays inside one document per user.
package mongostore

import (
	"errors"

	"bitwise74/account-api/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}

// objectID parses a hex id. Malformed ids can never match, so they are reported
// as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrNotFound
	}
	return oid, nil
}

// update renders a patch as $set/$unset, prefixing every field with prefix.
func update(p *store.Patch, prefix string) bson.M {
	u := bson.M{}

	if len(p.Set) > 0 {
		set := bson.M{}
		for k, v := range p.Set {
			set[prefix+k] = v
		}
		u["$set"] = set
	}

	if len(p.Unset) > 0 {
		unset := bson.M{}
		for _, k := range p.Unset {
			unset[prefix+k] = ""
		}
		u["$unset"] = unset
	}

	return u
}

func hexOrEmpty(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}
