package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http/response"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/ctxutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

func requestDBC(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// requestUser writes 401 and returns false when the caller is anonymous.
func requestUser(c *gin.Context) (uuid.UUID, bool) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondAPIError(c, apierr.New(apierr.CodeUnauthorized, "", "not authenticated"))
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondAPIError(c, apierr.Newf(apierr.CodeValidation, "", "%s must be a valid uuid", name))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondAPIError(c, apierr.New(apierr.CodeValidation, "", "invalid request body: "+err.Error()))
		return false
	}
	return true
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apierr.Newf(apierr.CodeValidation, "", "%s must be a valid uuid", name)
	}
	return &id, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apierr.Newf(apierr.CodeValidation, "", "%s must be true or false", name)
	}
	return &v, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.Newf(apierr.CodeValidation, "", "%s must be an integer", name)
	}
	return v, nil
}

func pageRequest(c *gin.Context) (services.PageRequest, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return services.PageRequest{}, err
	}
	size, err := queryInt(c, "pageSize")
	if err != nil {
		return services.PageRequest{}, err
	}
	return services.PageRequest{Page: page, PageSize: size}, nil
}
