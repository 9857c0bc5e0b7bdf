package handlers

import (
	"strconv"

	"food-ordering-api/access"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/pkg/resp"
	"food-ordering-api/services"
	"food-ordering-api/upload"
	"food-ordering-api/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenIssuer signs session tokens at login. It is nil when the API runs
// with header authentication.
type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

// Handler holds the services behind every endpoint.
type Handler struct {
	Accounts  *services.AccountService
	Tenants   *services.TenantService
	Catalog   *services.CatalogService
	Orders    *services.OrderService
	Messages  *services.MessageService
	Dashboard *services.DashboardService
	Tokens    TokenIssuer
	Uploads   *upload.LocalStore
	Hub       *ws.Hub
	Log       *zap.Logger
}

func (h *Handler) fail(c *gin.Context, err error) {
	resp.Error(c, h.Log, err)
}

// caller returns the authenticated caller. Routes that reach it always run
// behind AuthRequired.
func caller(c *gin.Context) access.Caller {
	cl, _ := middleware.GetCaller(c)
	return cl
}

// idParam parses a positive numeric path parameter, answering 400 when it is
// malformed.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		resp.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// optionalID parses an optional numeric query parameter. The second result
// is false when the parameter is present but malformed; a 400 has then been
// written.
func optionalID(c *gin.Context, keys ...string) (*uint, bool) {
	for _, key := range keys {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			resp.BadRequest(c, "invalid "+key)
			return nil, false
		}
		v := uint(id)
		return &v, true
	}
	return nil, true
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		resp.BadRequest(c, err.Error())
		return false
	}
	return true
}
