package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type store interface {
	ping(ctx context.Context) error

	listUsers(ctx context.Context) ([]User, error)
	getUser(ctx context.Context, id int64) (User, error)
	insertUser(ctx context.Context, u User) (User, error)
	updateUser(ctx context.Context, u User) error
	deleteUser(ctx context.Context, id int64) error

	listSubjects(ctx context.Context) ([]Subject, error)
	getSubject(ctx context.Context, id int64) (Subject, error)
	insertSubject(ctx context.Context, s Subject) (Subject, error)
	updateSubject(ctx context.Context, s Subject) error
	deleteSubject(ctx context.Context, id int64) error

	listMarks(ctx context.Context) ([]Mark, error)
	getMark(ctx context.Context, id int64) (Mark, error)
	insertMark(ctx context.Context, m Mark) (Mark, error)
	updateMark(ctx context.Context, id int64, marks float64) error
	deleteMark(ctx context.Context, id int64) error
}

type handler struct {
	logger *zap.Logger
	db     store
}

func (h handler) health(c *gin.Context) {
	if err := h.db.ping(c.Request.Context()); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// -------------------- USERS --------------------

func (h handler) listUsers(c *gin.Context) {
	users, err := h.db.listUsers(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "An error occurred while fetching users.")
		return
	}
	if len(users) == 0 {
		respondWithMessage(c, "No users found.", http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h handler) createUser(c *gin.Context) {
	var req userRequest
	if err := bindBody(c, &req); err != nil {
		h.respondWithError(c, err, "An error occurred while creating the user.")
		return
	}
	if !present(req.Name, req.Email, req.Role) {
		respondWithMessage(c, "Name, email, and role are required", http.StatusBadRequest)
		return
	}

	u, err := h.db.insertUser(c.Request.Context(), User{Name: *req.Name, Email: *req.Email, Role: *req.Role})
	if err != nil {
		h.respondWithError(c, err, "An error occurred while creating the user.")
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h handler) getUser(c *gin.Context) {
	id, err := pathID(c, errUserNotFound)
	if err == nil {
		var u User
		if u, err = h.db.getUser(c.Request.Context(), id); err == nil {
			c.JSON(http.StatusOK, u)
			return
		}
	}
	h.respondWithError(c, err, "An error occurred while fetching the user.")
}

func (h handler) updateUser(c *gin.Context) {
	id, err := pathID(c, errUserNotFound)
	if err != nil {
		h.respondWithError(c, err, "An error occurred while updating the user.")
		return
	}

	var req userRequest
	if err = bindBody(c, &req); err != nil {
		h.respondWithError(c, err, "An error occurred while updating the user.")
		return
	}
	if !present(req.Name, req.Email, req.Role) {
		respondWithMessage(c, "Name, email, and role are required", http.StatusBadRequest)
		return
	}

	u := User{ID: id, Name: *req.Name, Email: *req.Email, Role: *req.Role}
	if err = h.db.updateUser(c.Request.Context(), u); err != nil {
		h.respondWithError(c, err, "An error occurred while updating the user.")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h handler) deleteUser(c *gin.Context) {
	id, err := pathID(c, errUserNotFound)
	if err == nil {
		err = h.db.deleteUser(c.Request.Context(), id)
	}
	if err != nil {
		h.respondWithError(c, err, "An error occurred while deleting the user.")
		return
	}
	respondWithMessage(c, fmt.Sprintf("User %d deleted successfully", id), http.StatusOK)
}

// -------------------- SUBJECTS --------------------

func (h handler) listSubjects(c *gin.Context) {
	subjects, err := h.db.listSubjects(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "An error occurred while fetching subjects.")
		return
	}
	if len(subjects) == 0 {
		respondWithMessage(c, "No subjects found.", http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h handler) createSubject(c *gin.Context) {
	var req subjectRequest
	if err := bindBody(c, &req); err != nil {
		h.respondWithError(c, err, "An error occurred while creating the subject.")
		return
	}
	if !present(req.Name) {
		respondWithMessage(c, "Subject name is required", http.StatusBadRequest)
		return
	}

	s, err := h.db.insertSubject(c.Request.Context(), Subject{Name: *req.Name})
	if err != nil {
		h.respondWithError(c, err, "An error occurred while creating the subject.")
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h handler) getSubject(c *gin.Context) {
	id, err := pathID(c, errSubjectNotFound)
	if err == nil {
		var s Subject
		if s, err = h.db.getSubject(c.Request.Context(), id); err == nil {
			c.JSON(http.StatusOK, s)
			return
		}
	}
	h.respondWithError(c, err, "An error occurred while processing the subject.")
}

func (h handler) updateSubject(c *gin.Context) {
	id, err := pathID(c, errSubjectNotFound)
	if err != nil {
		h.respondWithError(c, err, "An error occurred while processing the subject.")
		return
	}

	var req subjectRequest
	if err = bindBody(c, &req); err != nil {
		h.respondWithError(c, err, "An error occurred while processing the subject.")
		return
	}
	if !present(req.Name) {
		respondWithMessage(c, "Subject name is required", http.StatusBadRequest)
		return
	}

	s := Subject{ID: id, Name: *req.Name}
	if err = h.db.updateSubject(c.Request.Context(), s); err != nil {
		h.respondWithError(c, err, "An error occurred while processing the subject.")
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h handler) deleteSubject(c *gin.Context) {
	id, err := pathID(c, errSubjectNotFound)
	if err == nil {
		err = h.db.deleteSubject(c.Request.Context(), id)
	}
	if err != nil {
		h.respondWithError(c, err, "An error occurred while processing the subject.")
		return
	}
	respondWithMessage(c, fmt.Sprintf("Subject %d deleted successfully", id), http.StatusOK)
}

// -------------------- MARKS --------------------

func (h handler) listMarks(c *gin.Context) {
	marks, err := h.db.listMarks(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "An error occurred while fetching marks.")
		return
	}
	if len(marks) == 0 {
		respondWithMessage(c, "No marks found.", http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, marks)
}

func (h handler) createMark(c *gin.Context) {
	var req markRequest
	if err := bindBody(c, &req); err != nil {
		h.respondWithError(c, err, "An error occurred while creating the marks entry.")
		return
	}
	// Zero is a valid value for every field; only absence is rejected.
	if req.UserID == nil || req.SubjectID == nil || req.Marks == nil {
		respondWithMessage(c, "Student ID, Subject ID, and Marks are required", http.StatusBadRequest)
		return
	}

	m, err := h.db.insertMark(c.Request.Context(), Mark{UserID: *req.UserID, SubjectID: *req.SubjectID, Marks: *req.Marks})
	if err != nil {
		h.respondWithError(c, err, "An error occurred while creating the marks entry.")
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h handler) getMark(c *gin.Context) {
	id, err := pathID(c, errMarkNotFound)
	if err == nil {
		var m Mark
		if m, err = h.db.getMark(c.Request.Context(), id); err == nil {
			c.JSON(http.StatusOK, m)
			return
		}
	}
	h.respondWithError(c, err, "An error occurred while processing the marks entry.")
}

func (h handler) updateMark(c *gin.Context) {
	id, err := pathID(c, errMarkNotFound)
	if err != nil {
		h.respondWithError(c, err, "An error occurred while processing the marks entry.")
		return
	}

	var req markRequest
	if err = bindBody(c, &req); err != nil {
		h.respondWithError(c, err, "An error occurred while processing the marks entry.")
		return
	}
	if req.Marks == nil {
		respondWithMessage(c, "Marks are required", http.StatusBadRequest)
		return
	}

	if err = h.db.updateMark(c.Request.Context(), id, *req.Marks); err != nil {
		h.respondWithError(c, err, "An error occurred while processing the marks entry.")
		return
	}
	c.JSON(http.StatusOK, markScore{ID: id, Marks: *req.Marks})
}

func (h handler) deleteMark(c *gin.Context) {
	id, err := pathID(c, errMarkNotFound)
	if err == nil {
		err = h.db.deleteMark(c.Request.Context(), id)
	}
	if err != nil {
		h.respondWithError(c, err, "An error occurred while processing the marks entry.")
		return
	}
	respondWithMessage(c, fmt.Sprintf("Marks entry %d deleted successfully", id), http.StatusOK)
}
