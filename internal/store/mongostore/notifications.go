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

type notificationSetDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        string             `bson:"user_id"`
	Notifications []notificationDoc  `bson:"notifications"`
}

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Type      model.NoticeType   `bson:"type"`
	Message   string             `bson:"message"`
	Read      bool               `bson:"read"`
	View      bool               `bson:"view"`
	CreatedAt time.Time          `bson:"created_at"`
	ReadAt    *time.Time         `bson:"read_at,omitempty"`
}

func (d *notificationDoc) model(userID string) model.Notification {
	return model.Notification{
		ID:        d.ID.Hex(),
		UserID:    userID,
		Type:      d.Type,
		Message:   d.Message,
		Read:      d.Read,
		View:      d.View,
		CreatedAt: d.CreatedAt,
		ReadAt:    d.ReadAt,
	}
}

type Notifications struct {
	c *mongo.Collection
}

func NewNotifications(c *mongo.Collection) *Notifications {
	return &Notifications{c: c}
}

func (s *Notifications) Push(ctx context.Context, userID string, n *model.Notification) error {
	d := notificationDoc{
		ID:        primitive.NewObjectID(),
		Type:      n.Type,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}

	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$push": bson.M{"notifications": d}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return translate(err)
	}

	n.ID = d.ID.Hex()
	n.UserID = userID
	return nil
}

func (s *Notifications) ByUser(ctx context.Context, userID string) (*model.NotificationSet, error) {
	var d notificationSetDoc
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&d); err != nil {
		return nil, translate(err)
	}

	set := &model.NotificationSet{
		ID:            d.ID.Hex(),
		UserID:        d.UserID,
		Notifications: make([]model.Notification, 0, len(d.Notifications)),
	}
	for i := range d.Notifications {
		set.Notifications = append(set.Notifications, d.Notifications[i].model(d.UserID))
	}

	return set, nil
}

func (s *Notifications) Update(ctx context.Context, userID, id string, p *store.Patch) (*model.Notification, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"user_id": userID, "notifications._id": oid}

	var d notificationSetDoc
	if p.Empty() {
		err = s.c.FindOne(ctx, filter).Decode(&d)
	} else {
		o := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = s.c.FindOneAndUpdate(ctx, filter, update(p, "notifications.$."), o).Decode(&d)
	}
	if err != nil {
		return nil, translate(err)
	}

	for i := range d.Notifications {
		if d.Notifications[i].ID == oid {
			n := d.Notifications[i].model(d.UserID)
			return &n, nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *Notifications) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	o := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"n." + model.FieldRead: false}},
	})

	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"notifications.$[n]." + model.FieldRead:   true,
			"notifications.$[n]." + model.FieldReadAt: at,
		}},
		o,
	)
	return err
}

// Pull removes one entry. An emptied ledger document is kept.
func (s *Notifications) Pull(ctx context.Context, userID, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "notifications._id": oid},
		bson.M{"$pull": bson.M{"notifications": bson.M{"_id": oid}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Notifications) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
