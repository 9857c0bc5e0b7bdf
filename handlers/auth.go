package handlers

import (
	"net/http"

	"food-ordering-api/models"
	"food-ordering-api/pkg/resp"
	"food-ordering-api/services"
	"food-ordering-api/upload"

	"github.com/gin-gonic/gin"
)

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user"`
}

// Register creates a new customer account
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := h.issue(u)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, authResponse{Token: token, User: u})
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.Accounts.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := h.issue(u)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, authResponse{Token: token, User: u})
}

func (h *Handler) issue(u *models.User) (string, error) {
	if h.Tokens == nil {
		return "", nil
	}
	return h.Tokens.GenerateToken(u)
}

// Me returns the authenticated account
func (h *Handler) Me(c *gin.Context) {
	cl := caller(c)
	u, err := h.Accounts.Profile(c.Request.Context(), cl, cl.AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, u)
}

// GetProfile returns an account; self or super-admin only
func (h *Handler) GetProfile(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	u, err := h.Accounts.Profile(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, u)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateProfileRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.Accounts.UpdateProfile(c.Request.Context(), caller(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, u)
}

// Upload stores an image and returns its URL
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, upload.MaxSize+1<<10)
	fh, err := c.FormFile("image")
	if err != nil {
		resp.BadRequest(c, "image file is required")
		return
	}
	if fh.Size > upload.MaxSize {
		resp.BadRequest(c, "image is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	url, err := h.Uploads.Save(fh.Filename, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, gin.H{"url": url})
}
