package workflows

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStoreEnsureConversationFindsExistingRow(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	created := time.Now()
	mock.ExpectQuery("SELECT id, thread_id, created_at FROM conversations").
		WithArgs("thread_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "thread_id", "created_at"}).
			AddRow(id.String(), "thread_1", created))

	conv, err := store.EnsureConversation(context.Background(), "thread_1")
	require.NoError(t, err)

	assert.Equal(t, id, conv.ID)
	assert.Equal(t, "thread_1", conv.ThreadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEnsureConversationCreatesMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, thread_id, created_at FROM conversations").
		WithArgs("thread_1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "thread_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conv, err := store.EnsureConversation(context.Background(), "thread_1")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, conv.ID)
	assert.Equal(t, "thread_1", conv.ThreadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateConversationAllowsEmptyThreadID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conv, err := store.CreateConversation(context.Background(), "")
	require.NoError(t, err)

	assert.Empty(t, conv.ThreadID, "stateless backends have no continuity token")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSaveMessage(t *testing.T) {
	store, mock := newMockStore(t)

	convID := uuid.New()
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), convID, "user", "Hello", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := store.SaveMessage(context.Background(), convID, "user", "Hello")
	require.NoError(t, err)

	assert.Equal(t, convID, msg.ConversationID)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSaveMessageInsertError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WillReturnError(sql.ErrConnDone)

	_, err := store.SaveMessage(context.Background(), uuid.New(), "user", "Hello")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
