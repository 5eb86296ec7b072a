package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dharsanguruparan/FileVault/internal/model"
)

func TestDocument_StoresSeqBesideFileFields(t *testing.T) {
	f := model.File{
		ID:         "ffff",
		OwnerID:    "alice",
		Name:       "a.png",
		Type:       model.TypeImage,
		ParentID:   model.RootID,
		StorageRef: "ref",
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 100_000, time.UTC),
	}
	raw, err := bson.Marshal(document{File: f, Seq: 7})
	require.NoError(t, err)

	var flat bson.M
	require.NoError(t, bson.Unmarshal(raw, &flat))
	assert.Equal(t, "ffff", flat["_id"])
	assert.Equal(t, "alice", flat["userId"])
	assert.Equal(t, int64(7), flat["seq"])
	assert.NotContains(t, flat, "File", "model fields are inlined")

	var back model.File
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, f.ID, back.ID)
	assert.Equal(t, f.StorageRef, back.StorageRef)
}

func TestListPipeline_SortsOnSeqOnly(t *testing.T) {
	p := listPipeline("alice", model.RootID, 40, 20)
	require.Len(t, p, 5)

	assert.Equal(t, "$match", p[0][0].Key)
	assert.Equal(t, bson.D{{Key: "userId", Value: "alice"}, {Key: "parentId", Value: model.RootID}}, p[0][0].Value)
	assert.Equal(t, "$sort", p[1][0].Key)
	assert.Equal(t, bson.D{{Key: "seq", Value: 1}}, p[1][0].Value)
	assert.Equal(t, bson.E{Key: "$skip", Value: int64(40)}, p[2][0])
	assert.Equal(t, bson.E{Key: "$limit", Value: int64(20)}, p[3][0])
}
