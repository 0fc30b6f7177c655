package main

type User struct {
	ID    int64  `db:"user_id" json:"user_id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Role  string `db:"role" json:"role"`
}

type Subject struct {
	ID   int64  `db:"subject_id" json:"subject_id"`
	Name string `db:"name" json:"name"`
}

type Mark struct {
	ID        int64   `db:"mark_id" json:"mark_id"`
	UserID    int64   `db:"user_id" json:"user_id"`
	SubjectID int64   `db:"subject_id" json:"subject_id"`
	Marks     float64 `db:"marks" json:"marks"`
}

// markScore is the body returned after a score update.
type markScore struct {
	ID    int64   `json:"mark_id"`
	Marks float64 `json:"marks"`
}

type userRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

type subjectRequest struct {
	Name *string `json:"name"`
}

type markRequest struct {
	UserID    *int64   `json:"user_id"`
	SubjectID *int64   `json:"subject_id"`
	Marks     *float64 `json:"marks"`
}
