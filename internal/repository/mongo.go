package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dharsanguruparan/FileVault/internal/model"
)

// FilesCollection is the MongoDB collection holding file documents.
const FilesCollection = "files"

// CountersCollection holds the sequence used to order listings.
const CountersCollection = "counters"

const filesCounterID = "files"

// document is the stored form of a file. Seq comes from the counters
// collection and is the only listing sort key; createdAt is millisecond
// precision and ids are random.
type document struct {
	model.File `bson:",inline"`
	Seq        int64 `bson:"seq"`
}

// MongoFiles stores file documents in MongoDB. Documents use the bson tags
// declared on model.File.
type MongoFiles struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

// NewMongoFiles constructs a repository over db's files collection.
func NewMongoFiles(db *mongo.Database) *MongoFiles {
	return &MongoFiles{
		coll:     db.Collection(FilesCollection),
		counters: db.Collection(CountersCollection),
	}
}

// EnsureIndexes creates the listing index. It is safe to call on every start.
func (r *MongoFiles) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "parentId", Value: 1},
			{Key: "seq", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("ensure files index: %w", err)
	}
	return nil
}

// Insert implements Files.
func (r *MongoFiles) Insert(ctx context.Context, f *model.File) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, document{File: *f, Seq: seq}); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// nextSeq atomically increments the files counter, creating it on first use.
func (r *MongoFiles) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: filesCounterID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next file seq: %w", err)
	}
	return counter.Seq, nil
}

// FindByID implements Files.
func (r *MongoFiles) FindByID(ctx context.Context, id string) (*model.File, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// FindOwned implements Files.
func (r *MongoFiles) FindOwned(ctx context.Context, id, ownerID string) (*model.File, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: ownerID}})
}

// List implements Files as a $match/$sort/$skip/$limit/$project pipeline.
func (r *MongoFiles) List(ctx context.Context, ownerID, parentID string, skip, limit int) ([]*model.File, error) {
	cur, err := r.coll.Aggregate(ctx, listPipeline(ownerID, parentID, skip, limit))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	out := make([]*model.File, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return out, nil
}

func listPipeline(ownerID, parentID string, skip, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "userId", Value: ownerID}, {Key: "parentId", Value: parentID}}}},
		{{Key: "$sort", Value: bson.D{{Key: "seq", Value: 1}}}},
		{{Key: "$skip", Value: int64(skip)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "userId", Value: 1},
			{Key: "name", Value: 1},
			{Key: "type", Value: 1},
			{Key: "isPublic", Value: 1},
			{Key: "parentId", Value: 1},
			{Key: "createdAt", Value: 1},
		}}},
	}
}

// SetPublic implements Files with FindOneAndUpdate, which MongoDB applies
// atomically to a single document.
func (r *MongoFiles) SetPublic(ctx context.Context, id, ownerID string, public bool) (*model.File, error) {
	res := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: ownerID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "isPublic", Value: public}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var f model.File
	if err := res.Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update file: %w", err)
	}
	return &f, nil
}

func (r *MongoFiles) findOne(ctx context.Context, filter bson.D) (*model.File, error) {
	var f model.File
	if err := r.coll.FindOne(ctx, filter).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	return &f, nil
}
