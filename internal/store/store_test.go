package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestParseID(t *testing.T) {
	oid, err := ParseID("65f1c0ffee0000000000abcd")
	require.NoError(t, err)
	assert.Equal(t, "65f1c0ffee0000000000abcd", oid.Hex())

	for _, bad := range []string{"", "abc", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrNotFound, bad)
	}
}

func TestNotFoundMapping(t *testing.T) {
	assert.ErrorIs(t, notFound(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, noRows(pgx.ErrNoRows), ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, notFound(other))
	assert.Equal(t, other, noRows(other))
}

func TestStatusChannel(t *testing.T) {
	assert.Equal(t, "research:status:abc", statusChannel("abc"))
}
