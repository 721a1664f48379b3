package handlers

import (
	"errors"
	"net/http"

	"github.com/craftbits/executive-portal/internal/aggregate"
	"github.com/craftbits/executive-portal/internal/dataset"
	apierrors "github.com/craftbits/executive-portal/internal/errors"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// WindowRequest is the inclusive month range shared by statement endpoints.
// Either bound may be omitted.
type WindowRequest struct {
	Start string `form:"start" binding:"omitempty,datetime=2006-01"`
	End   string `form:"end" binding:"omitempty,datetime=2006-01"`
}

// Window converts the request to an aggregate.Window.
func (r WindowRequest) Window() aggregate.Window {
	return aggregate.Window{Start: month(r.Start), End: month(r.End)}
}

// bindQuery binds and validates query parameters, writing the error
// response itself. It reports whether the handler should continue.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "Invalid query parameters", map[string]interface{}{
			"reason": err.Error(),
		})
		return false
	}
	return true
}

// month parses a value already validated as YYYY-MM; empty means unset.
func month(s string) models.Month {
	if s == "" {
		return models.Month{}
	}
	m, err := models.ParseMonth(s)
	if err != nil {
		return models.Month{}
	}
	return m
}

// writeReport sends a report and tags the response with its provenance.
func writeReport[T any](c *gin.Context, rep models.Report[T]) {
	source := dataset.ProvenanceReal
	if rep.Synthetic {
		source = dataset.ProvenanceSynthetic
	}
	c.Header(middleware.DataSourceHeader, source)
	c.JSON(http.StatusOK, rep)
}
