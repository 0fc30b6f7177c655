package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	errUserNotFound    = notFoundError("User not found")
	errStudentNotFound = notFoundError("Student not found")
	errSubjectNotFound = notFoundError("Subject not found")
	errMarkNotFound    = notFoundError("Marks entry not found")
)

type dbConnection struct {
	db *sqlx.DB
}

func createDatabaseConnection(ctx context.Context, cfg Config, logger *zap.Logger) (dbConnection, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return dbConnection{}, fmt.Errorf("connect to %s:%d/%s: %w", cfg.DBHost, cfg.DBPort, cfg.DBName, err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	logger.Info("DB connection established",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
		zap.Int("max_open_conns", cfg.DBMaxOpenConns))

	if cfg.DBCreateSchema {
		if _, err = db.ExecContext(ctx, schema); err != nil {
			_ = db.Close()
			return dbConnection{}, fmt.Errorf("create schema: %w", err)
		}
		logger.Info("DB schema created")
	}

	if cfg.DBSeedExampleData {
		if _, err = db.ExecContext(ctx, addExampleData); err != nil {
			_ = db.Close()
			return dbConnection{}, fmt.Errorf("populate example data: %w", err)
		}
		logger.Info("DB populated with example data")
	}

	return dbConnection{db: db}, nil
}

func (conn dbConnection) close() error {
	return conn.db.Close()
}

func (conn dbConnection) ping(ctx context.Context) error {
	return conn.db.PingContext(ctx)
}

// withTx runs fn in a transaction that is rolled back unless fn and the
// commit both succeed.
func (conn dbConnection) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := conn.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func(tx *sqlx.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// execExpectingRow runs a mutating statement and reports missing when it
// touched no rows.
func execExpectingRow(ctx context.Context, tx *sqlx.Tx, missing error, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

// Users

func (conn dbConnection) listUsers(ctx context.Context) (users []User, err error) {
	if err = conn.db.SelectContext(ctx, &users, "SELECT user_id, name, email, role FROM users ORDER BY user_id"); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

func (conn dbConnection) getUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := conn.db.GetContext(ctx, &u, "SELECT user_id, name, email, role FROM users WHERE user_id=$1::bigint", id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, errUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user %d: %w", id, err)
	}
	return u, nil
}

func (conn dbConnection) insertUser(ctx context.Context, u User) (User, error) {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx,
			"INSERT INTO users(name, email, role) VALUES ($1, $2, $3) RETURNING user_id",
			u.Name, u.Email, u.Role).Scan(&u.ID)
	})
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (conn dbConnection) updateUser(ctx context.Context, u User) error {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return execExpectingRow(ctx, tx, errUserNotFound,
			"UPDATE users SET name=$1, email=$2, role=$3 WHERE user_id=$4::bigint", u.Name, u.Email, u.Role, u.ID)
	})
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

func (conn dbConnection) deleteUser(ctx context.Context, id int64) error {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return execExpectingRow(ctx, tx, errUserNotFound, "DELETE FROM users WHERE user_id=$1::bigint", id)
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// Subjects

func (conn dbConnection) listSubjects(ctx context.Context) (subjects []Subject, err error) {
	if err = conn.db.SelectContext(ctx, &subjects, "SELECT subject_id, name FROM subjects ORDER BY subject_id"); err != nil {
		return nil, fmt.Errorf("select subjects: %w", err)
	}
	return subjects, nil
}

func (conn dbConnection) getSubject(ctx context.Context, id int64) (Subject, error) {
	var s Subject
	err := conn.db.GetContext(ctx, &s, "SELECT subject_id, name FROM subjects WHERE subject_id=$1::bigint", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, errSubjectNotFound
	}
	if err != nil {
		return Subject{}, fmt.Errorf("select subject %d: %w", id, err)
	}
	return s, nil
}

func (conn dbConnection) insertSubject(ctx context.Context, s Subject) (Subject, error) {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, "INSERT INTO subjects(name) VALUES ($1) RETURNING subject_id", s.Name).Scan(&s.ID)
	})
	if err != nil {
		return Subject{}, fmt.Errorf("insert subject: %w", err)
	}
	return s, nil
}

func (conn dbConnection) updateSubject(ctx context.Context, s Subject) error {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return execExpectingRow(ctx, tx, errSubjectNotFound, "UPDATE subjects SET name=$1 WHERE subject_id=$2::bigint", s.Name, s.ID)
	})
	if err != nil {
		return fmt.Errorf("update subject %d: %w", s.ID, err)
	}
	return nil
}

func (conn dbConnection) deleteSubject(ctx context.Context, id int64) error {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return execExpectingRow(ctx, tx, errSubjectNotFound, "DELETE FROM subjects WHERE subject_id=$1::bigint", id)
	})
	if err != nil {
		return fmt.Errorf("delete subject %d: %w", id, err)
	}
	return nil
}

// Marks

func (conn dbConnection) listMarks(ctx context.Context) (marks []Mark, err error) {
	if err = conn.db.SelectContext(ctx, &marks, "SELECT mark_id, user_id, subject_id, marks FROM marks ORDER BY mark_id"); err != nil {
		return nil, fmt.Errorf("select marks: %w", err)
	}
	return marks, nil
}

func (conn dbConnection) getMark(ctx context.Context, id int64) (Mark, error) {
	var m Mark
	err := conn.db.GetContext(ctx, &m, "SELECT mark_id, user_id, subject_id, marks FROM marks WHERE mark_id=$1::bigint", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Mark{}, errMarkNotFound
	}
	if err != nil {
		return Mark{}, fmt.Errorf("select mark %d: %w", id, err)
	}
	return m, nil
}

// insertMark checks the referenced student and subject before inserting, all
// inside one transaction.
func (conn dbConnection) insertMark(ctx context.Context, m Mark) (Mark, error) {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM users WHERE user_id=$1::bigint)", m.UserID); err != nil {
			return err
		}
		if !exists {
			return errStudentNotFound
		}

		if err := tx.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM subjects WHERE subject_id=$1::bigint)", m.SubjectID); err != nil {
			return err
		}
		if !exists {
			return errSubjectNotFound
		}

		return tx.QueryRowxContext(ctx,
			"INSERT INTO marks(user_id, subject_id, marks) VALUES ($1, $2, $3) RETURNING mark_id",
			m.UserID, m.SubjectID, m.Marks).Scan(&m.ID)
	})
	if err != nil {
		return Mark{}, fmt.Errorf("insert mark: %w", err)
	}
	return m, nil
}

func (conn dbConnection) updateMark(ctx context.Context, id int64, marks float64) error {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return execExpectingRow(ctx, tx, errMarkNotFound, "UPDATE marks SET marks=$1 WHERE mark_id=$2::bigint", marks, id)
	})
	if err != nil {
		return fmt.Errorf("update mark %d: %w", id, err)
	}
	return nil
}

func (conn dbConnection) deleteMark(ctx context.Context, id int64) error {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return execExpectingRow(ctx, tx, errMarkNotFound, "DELETE FROM marks WHERE mark_id=$1::bigint", id)
	})
	if err != nil {
		return fmt.Errorf("delete mark %d: %w", id, err)
	}
	return nil
}
