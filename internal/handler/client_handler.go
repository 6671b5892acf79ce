package handler

import (
	"net/http"
	"strings"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /clients のHTTP（登録・ログイン・refresh・プロフィール）
type ClientHandler struct {
	uc *usecase.AuthUsecase
}

// DI
func NewClientHandler(uc *usecase.AuthUsecase) *ClientHandler {
	return &ClientHandler{uc: uc}
}

type loginRequest struct {
	Login       string `json:"login"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *ClientHandler) RegisterRoutes(api *echo.Group, guards Guards) {
	g := api.Group("/clients")
	g.POST("/register/", h.register)
	g.POST("/login/", h.login)
	g.POST("/refresh/", h.refresh)

	me := g.Group("/me", guards.required()...)
	me.GET("/", h.me)
	me.PATCH("/", h.updateMe)
}

func (h *ClientHandler) register(c echo.Context) error {
	var req usecase.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Register(c.Request().Context(), req, c.Request().UserAgent())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ClientHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//login が無ければ email / phone_number
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" {
		login = strings.TrimSpace(req.PhoneNumber)
	}

	out, err := h.uc.Login(c.Request().Context(), login, req.Password, c.Request().UserAgent())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ClientHandler) refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Refresh(c.Request().Context(), req.Refresh, c.Request().UserAgent())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ClientHandler) me(c echo.Context) error {
	clientID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: "unauthorized"})
	}

	out, err := h.uc.Me(c.Request().Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// JSON か multipart（image とテキスト項目）
func (h *ClientHandler) updateMe(c echo.Context) error {
	clientID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: "unauthorized"})
	}
	ctx := c.Request().Context()

	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		var patch usecase.ProfilePatch
		if err := c.Bind(&patch); err != nil {
			return badRequest(c, "invalid body")
		}
		out, err := h.uc.UpdateMe(ctx, clientID, patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "invalid multipart body")
	}

	var out *usecase.ProfileDTO
	if patch, changed := formPatch(form.Value); changed {
		if out, err = h.uc.UpdateMe(ctx, clientID, patch); err != nil {
			return writeError(c, err)
		}
	}

	if files := form.File["image"]; len(files) > 0 {
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "invalid image")
		}
		defer f.Close()

		if out, err = h.uc.UploadAvatar(ctx, clientID, fh.Filename, f); err != nil {
			return writeError(c, err)
		}
	}

	if out == nil {
		if out, err = h.uc.Me(ctx, clientID); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func formPatch(values map[string][]string) (usecase.ProfilePatch, bool) {
	var patch usecase.ProfilePatch
	changed := false
	pick := func(key string) *string {
		vs, ok := values[key]
		if !ok || len(vs) == 0 {
			return nil
		}
		changed = true
		v := vs[0]
		return &v
	}
	patch.Surname = pick("surname")
	patch.Name = pick("name")
	patch.Patronymic = pick("patronymic")
	patch.PhoneNumber = pick("phone_number")
	patch.Email = pick("email")
	patch.Birthday = pick("birthday")
	return patch, changed
}
