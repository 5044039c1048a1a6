package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// store holds the typed read path shared by every Mongo repository. Reads
// decode straight into T and fall back to survival mode when a legacy
// document cannot be converted.
type store[T any] struct {
	c   *mongo.Collection
	log *zap.Logger
}

func newStore[T any](db *mongo.Database, collection string, logger *zap.Logger) store[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return store[T]{c: db.Collection(collection), log: logger}
}

func (s store[T]) findOne(ctx context.Context, filter any) (*T, error) {
	res := s.c.FindOne(ctx, filter)
	if err := res.Err(); err != nil {
		return nil, err
	}
	var item T
	if err := res.Decode(&item); err != nil {
		if !isConversionError(err) {
			return nil, err
		}
		s.log.Warn("survival mode", zap.String("collection", s.c.Name()), zap.Error(err))
		return s.findOneRaw(ctx, filter)
	}
	return &item, nil
}

func (s store[T]) findOneRaw(ctx context.Context, filter any) (*T, error) {
	var raw bson.M
	if err := s.c.FindOne(ctx, filter).Decode(&raw); err != nil {
		return nil, err
	}
	var item T
	decodeLenient(idutil.NormalizeDocument(raw), &item)
	return &item, nil
}

func (s store[T]) findAll(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		if !isConversionError(err) {
			return nil, err
		}
		s.log.Warn("survival mode", zap.String("collection", s.c.Name()), zap.Error(err))
		return s.findAllRaw(ctx, filter, opts...)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (s store[T]) findAllRaw(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var item T
		decodeLenient(idutil.NormalizeDocument(raw), &item)
		out = append(out, item)
	}
	return out, nil
}

func (s store[T]) insert(ctx context.Context, doc any) error {
	_, err := s.c.InsertOne(ctx, doc)
	return err
}

func (s store[T]) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, byID(id), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s store[T]) setByID(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	return s.updateByID(ctx, id, bson.M{"$set": fields})
}

func (s store[T]) deleteByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.c.DeleteOne(ctx, byID(oid))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s store[T]) getByID(ctx context.Context, id string) (*T, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, byID(oid))
}

func (s store[T]) count(ctx context.Context, filter any) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// decodeLenient decodes the whole document and, when that still fails,
// retries one field at a time so a single bad field does not lose the rest.
func decodeLenient(doc bson.M, target any) {
	if data, err := bson.Marshal(doc); err == nil {
		if err := bson.Unmarshal(data, target); err == nil {
			return
		}
	}
	for key, val := range doc {
		data, err := bson.Marshal(bson.M{key: val})
		if err != nil {
			continue
		}
		_ = bson.Unmarshal(data, target)
	}
}

func isConversionError(err error) bool {
	if err == nil {
		return false
	}
	var decodeErr *bsoncodec.DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}
	var valueErr bsoncodec.ValueDecoderError
	if errors.As(err, &valueErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "cannot decode") || strings.Contains(msg, "error decoding key")
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := idutil.ObjectID(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.NewInvalidID("id", id)
	}
	return oid, nil
}

// byID matches documents whose _id was stored either as an ObjectID or as
// its hex string.
func byID(oid primitive.ObjectID) bson.M {
	return bson.M{"_id": bson.M{"$in": bson.A{oid, oid.Hex()}}}
}

// refValues returns every stored form of a reference id.
func refValues(ids ...string) bson.A {
	out := bson.A{}
	for _, id := range ids {
		norm, ok := idutil.Normalize(id)
		if !ok {
			continue
		}
		out = append(out, norm)
		if oid, err := primitive.ObjectIDFromHex(norm); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

// refIn builds an $in match over refValues.
func refIn(ids ...string) bson.M {
	return bson.M{"$in": refValues(ids...)}
}

func objectIDs(ids []string) bson.A {
	out := bson.A{}
	for _, id := range ids {
		if oid, err := idutil.ObjectID(id); err == nil {
			out = append(out, oid, oid.Hex())
		}
	}
	return out
}

func newestFirst(field string, limit int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: field, Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}

func stampNew(id *primitive.ObjectID, created, updated *time.Time) {
	now := time.Now().UTC()
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

// toSet marshals v into a $set document, dropping _id and the omitted keys.
func toSet(v any, omit ...string) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	for _, key := range omit {
		delete(doc, key)
	}
	return doc, nil
}

// replaceFields builds a $set of v plus an $unset for each clearable key
// that marshaled empty, so zeroed optional fields are removed from the
// stored document instead of keeping their old value.
func replaceFields(v any, omit []string, clearable ...string) (bson.M, error) {
	set, err := toSet(v, omit...)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": set}
	unset := bson.M{}
	for _, key := range clearable {
		if _, ok := set[key]; !ok {
			unset[key] = ""
		}
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}
