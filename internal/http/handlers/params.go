package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/govgen-backend/internal/http/response"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/platform/ctxutil"
)

// requireUser writes 401 and returns false when the caller is anonymous.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	uid := ctxutil.UserID(c.Request.Context())
	if uid == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errs.ErrUnauthorized)
		return uuid.Nil, false
	}
	return uid, true
}

func pathID(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		response.RespondFrom(c, fmt.Errorf("invalid id %q: %w", raw, errs.ErrInvalidInput))
		return 0, false
	}
	return uint(n), true
}

// bindOptionalJSON decodes the body into dst when one was sent.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondFrom(c, fmt.Errorf("malformed request body: %v: %w", err, errs.ErrInvalidInput))
		return false
	}
	return true
}
