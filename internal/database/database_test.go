package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	for _, table := range []string{"players", "matches", "match_scores", "chat_messages", "chat_replies", "chat_likes"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "Querying for %s table should not produce an error", table)
		assert.Equal(t, table, name)
	}
}

func TestInitDB_EnforcesUniqueUserID(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	_, err = db.Exec("INSERT INTO players (id, user_id, name, created_at, updated_at) VALUES ('p1', 'u1', 'A', 0, 0)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO players (id, user_id, name, created_at, updated_at) VALUES ('p2', 'u1', 'B', 0, 0)")
	assert.Error(t, err, "a second profile for the same user must be rejected")
}

func TestInitDB_LikeTargetsExactlyOne(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	_, err = db.Exec("INSERT INTO chat_likes (id, player_id, created_at) VALUES ('l1', 'p1', 0)")
	assert.Error(t, err, "a like must point at a message or a reply")
}

func TestInitDB_BadMigrationsDir(t *testing.T) {
	_, _, err := InitDB(":memory:", "", "", "./does-not-exist")
	assert.Error(t, err)
}
