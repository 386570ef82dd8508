package pagination

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitClampsPageSize(t *testing.T) {
	assert.Equal(t, 50, Pagination{}.Limit())
	assert.Equal(t, 50, Pagination{PageSize: -1}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
	assert.Equal(t, 250, Pagination{PageSize: 10000}.Limit())
}

func TestAfterRejectsMalformedTokens(t *testing.T) {
	id, err := Pagination{}.After()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(0), id)

	_, err = Pagination{PageToken: "not base64!"}.After()
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	// Valid base64, not a cursor.
	_, err = Pagination{PageToken: "aGVsbG8="}.After()
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestTrimRoundTripsCursor(t *testing.T) {
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	type row struct{ ID snowflake.ID }
	rows := []row{{node.Generate()}, {node.Generate()}, {node.Generate()}}

	page, info := Trim(rows, 2, func(r row) snowflake.ID { return r.ID })
	require.Len(t, page, 2)
	require.True(t, info.HasMore)

	after, err := Pagination{PageToken: info.NextPageToken}.After()
	require.NoError(t, err)
	assert.Equal(t, page[1].ID, after)

	page, info = Trim(rows[:2], 2, func(r row) snowflake.ID { return r.ID })
	assert.Len(t, page, 2)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
