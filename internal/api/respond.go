package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kapu/post-reactors/pkg/errors"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category"`
	Details  any    `json:"details,omitempty"`
}

func newErrorResponse(err error) (int, errorResponse) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.New(errors.KindInternal, "Internal server error").WithCause(err)
	}

	resp := errorResponse{
		Error:    appErr.Message,
		Category: string(appErr.Kind),
	}
	switch {
	case appErr.Detail != "":
		resp.Details = appErr.Detail
	case len(appErr.Context) > 0:
		resp.Details = appErr.Context
	}

	status := appErr.StatusCode
	if status == 0 {
		status = errors.HTTPStatus(appErr.Kind)
	}
	return status, resp
}

func respondError(c *gin.Context, err error) {
	status, body := newErrorResponse(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// flexID accepts 7 and "7" alike; the form posts select values as strings.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("Invalid "+name, name, c.Param(name))
	}
	return id, nil
}

func bindJSON(c *gin.Context, dest any) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return errors.New(errors.KindValidation, "Invalid request body").
			WithDetail(err.Error())
	}
	return nil
}

func statusOK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
