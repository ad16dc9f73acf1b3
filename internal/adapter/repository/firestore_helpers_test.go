package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"barterhub/internal/domain/entity"
	"barterhub/pkg/errors"
)

func TestPaginate(t *testing.T) {
	a, b, c := 1, 2, 3
	items := []*int{&a, &b, &c}

	assert.Equal(t, []*int{&b, &c}, paginate(items, 5, 1))
	assert.Equal(t, []*int{&a}, paginate(items, 1, 0))
	assert.Empty(t, paginate(items, 2, 3))
}

func TestSortDesc(t *testing.T) {
	a, b, c := 1, 3, 2
	items := []*int{&a, &b, &c}

	sortDesc(items, func(v *int) int64 { return int64(*v) })

	assert.Equal(t, []*int{&b, &c, &a}, items)
}

func TestFirestoreErrorMapsNotFound(t *testing.T) {
	err := firestoreError("get", "Chat", status.Error(codes.NotFound, "no doc"))
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	err = firestoreError("get", "Chat", status.Error(codes.Unavailable, "down"))
	assert.True(t, errors.Is(err, errors.CodeInternal))

	assert.NoError(t, firestoreError("get", "Chat", nil))
}

func TestReadTargetsSkipsOwnAndUnrequested(t *testing.T) {
	unread := []*entity.Message{
		{ID: "m1", SenderID: "u2"},
		{ID: "m2", SenderID: "u1"},
		{ID: "m3", SenderID: "u2"},
	}

	assert.Equal(t, []string{"m1", "m3"}, readTargets(unread, "u1", nil))
	assert.Equal(t, []string{"m3"}, readTargets(unread, "u1", []string{"m2", "m3"}))
	assert.Empty(t, readTargets(unread, "u1", []string{"missing"}))
}

func TestChunkRespectsTransactionWriteLimit(t *testing.T) {
	ids := make([]string, 1201)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}

	chunks := chunk(ids, maxTxWrites)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 201)
	assert.Equal(t, "m1200", chunks[2][200])
	assert.Empty(t, chunk(nil, maxTxWrites))
}
