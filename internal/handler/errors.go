package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/finance-tracker/internal/middleware"
	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/service"
	"github.com/finance-tracker/pkg/logger"
	"github.com/finance-tracker/pkg/response"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// handleServiceError maps service error kinds to HTTP responses
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, "invalid email or password")
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, "invalid or expired token")
	default:
		logger.Error("%s %s | rid=%s | %v", c.Request.Method, c.Request.URL.Path, c.GetString(middleware.ContextKeyRequestID), err)
		response.InternalError(c, "internal server error")
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+strings.ReplaceAll(name, "_", " "))
		return 0, false
	}
	return uint(id), true
}

// parsePage reads page and page_size; missing values become 0 and are
// normalized by the service
func parsePage(c *gin.Context) (int, int, bool) {
	page, err := queryInt(c, "page")
	if err != nil {
		response.BadRequest(c, "invalid page")
		return 0, 0, false
	}
	pageSize, err := queryInt(c, "page_size")
	if err != nil {
		response.BadRequest(c, "invalid page_size")
		return 0, 0, false
	}
	return page, pageSize, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// parseHistoryFilter reads start_date, end_date and account_ids.
// Dates are RFC 3339 or YYYY-MM-DD; a date-only end_date covers the whole day.
func parseHistoryFilter(c *gin.Context) (models.HistoryFilter, bool) {
	var filter models.HistoryFilter

	if v := c.Query("start_date"); v != "" {
		t, err := parseTime(v, false)
		if err != nil {
			response.BadRequest(c, "invalid start_date")
			return filter, false
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := parseTime(v, true)
		if err != nil {
			response.BadRequest(c, "invalid end_date")
			return filter, false
		}
		filter.EndDate = &t
	}
	if v := c.Query("account_ids"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil {
				response.BadRequest(c, "invalid account_ids")
				return filter, false
			}
			filter.AccountIDs = append(filter.AccountIDs, uint(id))
		}
	}
	return filter, true
}

func parseTime(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
