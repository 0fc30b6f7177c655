package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// notFoundError names a missing row or a missing referenced row.
type notFoundError string

func (e notFoundError) Error() string { return string(e) }

// validationError names a missing or malformed request field.
type validationError string

func (e validationError) Error() string { return string(e) }

const errInvalidBody = validationError("Invalid body")

// respondWithError translates err into the response for its kind. Anything
// that is neither a validation nor a not-found error is logged and answered
// with the generic internalMsg.
func (h handler) respondWithError(c *gin.Context, err error, internalMsg string) {
	var nf notFoundError
	if errors.As(err, &nf) {
		respondWithMessage(c, nf.Error(), http.StatusNotFound)
		return
	}

	var ve validationError
	if errors.As(err, &ve) {
		respondWithMessage(c, ve.Error(), http.StatusBadRequest)
		return
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		fields = append(fields, zap.String("pg_code", string(pqErr.Code)), zap.String("pg_constraint", pqErr.Constraint))
	}
	h.logger.Error(internalMsg, fields...)

	c.JSON(http.StatusInternalServerError, gin.H{"error": internalMsg})
}

func respondWithMessage(c *gin.Context, messageTxt string, statusCode int) {
	c.JSON(statusCode, gin.H{"message": messageTxt})
}

// pathID reads the :id parameter. Anything but unsigned decimal digits
// matches no row.
func pathID(c *gin.Context, missing error) (int64, error) {
	raw := c.Param("id")
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, missing
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, missing
	}
	return id, nil
}

func bindBody(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

func present(values ...*string) bool {
	for _, v := range values {
		if v == nil || *v == "" {
			return false
		}
	}
	return true
}
