package main

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockConnection(t *testing.T) (dbConnection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return dbConnection{db: sqlx.NewDb(db, "postgres")}, mock
}

func q(query string) string {
	return "^" + regexp.QuoteMeta(query) + "$"
}

func Test_listUsersEmpty(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(q("SELECT user_id, name, email, role FROM users ORDER BY user_id")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "email", "role"}))

	users, err := conn.listUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func Test_insertUser(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO users(name, email, role) VALUES ($1, $2, $3) RETURNING user_id")).
		WithArgs("ivan", "ivan@test.com", "student").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectCommit()

	u, err := conn.insertUser(context.Background(), User{Name: "ivan", Email: "ivan@test.com", Role: "student"})
	require.NoError(t, err)
	assert.Equal(t, User{ID: 7, Name: "ivan", Email: "ivan@test.com", Role: "student"}, u)
}

func Test_insertUserConstraintViolation(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO users(name, email, role) VALUES ($1, $2, $3) RETURNING user_id")).
		WithArgs("ivan", "ivan@test.com", "student").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	mock.ExpectRollback()

	_, err := conn.insertUser(context.Background(), User{Name: "ivan", Email: "ivan@test.com", Role: "student"})
	require.Error(t, err)
	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	assert.Equal(t, pq.ErrorCode("23505"), pqErr.Code)
}

func Test_updateUserNotFound(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET name=$1, email=$2, role=$3 WHERE user_id=$4::bigint")).
		WithArgs("ivan", "ivan@test.com", "student", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := conn.updateUser(context.Background(), User{ID: 42, Name: "ivan", Email: "ivan@test.com", Role: "student"})
	assert.ErrorIs(t, err, errUserNotFound)
}

func Test_getSubjectNotFound(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(q("SELECT subject_id, name FROM subjects WHERE subject_id=$1::bigint")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "name"}))

	_, err := conn.getSubject(context.Background(), 3)
	assert.ErrorIs(t, err, errSubjectNotFound)
}

func Test_updateSubject(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE subjects SET name=$1 WHERE subject_id=$2::bigint")).
		WithArgs("Algebra", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, conn.updateSubject(context.Background(), Subject{ID: 1, Name: "Algebra"}))
}

func Test_insertMark(t *testing.T) {
	userExists := q("SELECT EXISTS(SELECT 1 FROM users WHERE user_id=$1::bigint)")
	subjectExists := q("SELECT EXISTS(SELECT 1 FROM subjects WHERE subject_id=$1::bigint)")
	insert := q("INSERT INTO marks(user_id, subject_id, marks) VALUES ($1, $2, $3) RETURNING mark_id")

	t.Run("Missing student", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectQuery(userExists).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := conn.insertMark(context.Background(), Mark{UserID: 1, SubjectID: 1, Marks: 85})
		assert.ErrorIs(t, err, errStudentNotFound)
	})

	t.Run("Missing subject", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectQuery(userExists).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(subjectExists).WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := conn.insertMark(context.Background(), Mark{UserID: 1, SubjectID: 2, Marks: 85})
		assert.ErrorIs(t, err, errSubjectNotFound)
	})

	t.Run("Inserted", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectQuery(userExists).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(subjectExists).WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(insert).WithArgs(int64(1), int64(2), float64(85)).
			WillReturnRows(sqlmock.NewRows([]string{"mark_id"}).AddRow(5))
		mock.ExpectCommit()

		m, err := conn.insertMark(context.Background(), Mark{UserID: 1, SubjectID: 2, Marks: 85})
		require.NoError(t, err)
		assert.Equal(t, Mark{ID: 5, UserID: 1, SubjectID: 2, Marks: 85}, m)
	})
}

func Test_deleteMarkTwice(t *testing.T) {
	conn, mock := newMockConnection(t)
	del := q("DELETE FROM marks WHERE mark_id=$1::bigint")

	mock.ExpectBegin()
	mock.ExpectExec(del).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(del).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.NoError(t, conn.deleteMark(context.Background(), 5))
	assert.ErrorIs(t, conn.deleteMark(context.Background(), 5), errMarkNotFound)
}

func Test_listMarks(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(q("SELECT mark_id, user_id, subject_id, marks FROM marks ORDER BY mark_id")).
		WillReturnRows(sqlmock.NewRows([]string{"mark_id", "user_id", "subject_id", "marks"}).
			AddRow(1, 1, 1, "56").
			AddRow(2, 1, 2, "91.5"))

	marks, err := conn.listMarks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Mark{
		{ID: 1, UserID: 1, SubjectID: 1, Marks: 56},
		{ID: 2, UserID: 1, SubjectID: 2, Marks: 91.5},
	}, marks)
}

func Test_beginFailure(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := conn.deleteUser(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errUserNotFound)
}

func Test_getUserBeyond32Bits(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(q("SELECT user_id, name, email, role FROM users WHERE user_id=$1::bigint")).
		WithArgs(int64(9999999999)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "email", "role"}))

	_, err := conn.getUser(context.Background(), 9999999999)
	assert.ErrorIs(t, err, errUserNotFound)
}

func Test_insertMarkStudentBeyond32Bits(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM users WHERE user_id=$1::bigint)")).
		WithArgs(int64(9999999999)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := conn.insertMark(context.Background(), Mark{UserID: 9999999999, SubjectID: 1, Marks: 85})
	assert.ErrorIs(t, err, errStudentNotFound)
}

func Test_insertSubject(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO subjects(name) VALUES ($1) RETURNING subject_id")).
		WithArgs("Math").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}).AddRow(1))
	mock.ExpectCommit()

	s, err := conn.insertSubject(context.Background(), Subject{Name: "Math"})
	require.NoError(t, err)
	assert.Equal(t, Subject{ID: 1, Name: "Math"}, s)
}

func Test_deleteSubjectNotFound(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM subjects WHERE subject_id=$1::bigint")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, conn.deleteSubject(context.Background(), 4), errSubjectNotFound)
}

func Test_getMark(t *testing.T) {
	query := q("SELECT mark_id, user_id, subject_id, marks FROM marks WHERE mark_id=$1::bigint")

	t.Run("Found", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectQuery(query).WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"mark_id", "user_id", "subject_id", "marks"}).AddRow(2, 1, 3, "74.5"))

		m, err := conn.getMark(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, Mark{ID: 2, UserID: 1, SubjectID: 3, Marks: 74.5}, m)
	})

	t.Run("Missing", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectQuery(query).WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"mark_id", "user_id", "subject_id", "marks"}))

		_, err := conn.getMark(context.Background(), 2)
		assert.ErrorIs(t, err, errMarkNotFound)
	})
}

func Test_updateMark(t *testing.T) {
	update := q("UPDATE marks SET marks=$1 WHERE mark_id=$2::bigint")

	t.Run("Updated", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs(float64(0), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, conn.updateMark(context.Background(), 2, 0))
	})

	t.Run("Missing", func(t *testing.T) {
		conn, mock := newMockConnection(t)
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs(float64(70), int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, conn.updateMark(context.Background(), 9, 70), errMarkNotFound)
	})
}
