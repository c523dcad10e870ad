package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meetsync/internal/model"
)

func putTestChallenge(t *testing.T, db *DB, userID, deviceID, challenge string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, db.Challenges().Put(context.Background(), &model.BiometricChallenge{
		UserID:    userID,
		DeviceID:  deviceID,
		Challenge: challenge,
		ExpiresAt: expiresAt,
	}))
}

func TestChallengeStore_ConsumeIsSingleUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, db, "c@example.com")
	putTestChallenge(t, db, user.ID, "phone-1", "challenge-abc", now.Add(5*time.Minute))

	ok, err := db.Challenges().Consume(ctx, user.ID, "phone-1", "challenge-abc", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same challenge a second time must fail.
	ok, err = db.Challenges().Consume(ctx, user.ID, "phone-1", "challenge-abc", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeStore_ConsumeRejectsExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, db, "c@example.com")
	putTestChallenge(t, db, user.ID, "phone-1", "challenge-abc", now.Add(-time.Second))

	ok, err := db.Challenges().Consume(ctx, user.ID, "phone-1", "challenge-abc", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeStore_ConsumeChecksAllFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, db, "c@example.com")
	putTestChallenge(t, db, user.ID, "phone-1", "challenge-abc", now.Add(5*time.Minute))

	ok, err := db.Challenges().Consume(ctx, user.ID, "other-device", "challenge-abc", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.Challenges().Consume(ctx, user.ID, "phone-1", "wrong-value", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeStore_PutReplacesPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, db, "c@example.com")
	putTestChallenge(t, db, user.ID, "phone-1", "first", now.Add(5*time.Minute))
	putTestChallenge(t, db, user.ID, "phone-1", "second", now.Add(5*time.Minute))

	// The first challenge was superseded.
	ok, err := db.Challenges().Consume(ctx, user.ID, "phone-1", "first", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.Challenges().Consume(ctx, user.ID, "phone-1", "second", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChallengeStore_DeleteExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, db, "c@example.com")
	putTestChallenge(t, db, user.ID, "phone-1", "dead", now.Add(-time.Minute))
	putTestChallenge(t, db, user.ID, "phone-2", "live", now.Add(time.Minute))

	n, err := db.Challenges().DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := db.Challenges().Consume(ctx, user.ID, "phone-2", "live", now)
	require.NoError(t, err)
	assert.True(t, ok)
}
