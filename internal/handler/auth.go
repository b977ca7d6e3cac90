package handler

import (
    "context"
    "log/slog"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/middleware"
    "github.com/sgst/sgst-api/internal/model"
    "github.com/sgst/sgst-api/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// AuthAPI is the slice of service.AuthService used by the auth endpoints.
type AuthAPI interface {
    Login(ctx context.Context, email, password string) (service.Session, error)
    Register(ctx context.Context, r service.Registration) (service.Session, error)
    LoginWorkshop(ctx context.Context, accessToken string) (*model.MembershipContext, error)
    Logout(ctx context.Context, p *model.Principal, hasWorkshop bool, refreshToken string) (service.LogoutPlan, error)
    Profile(ctx context.Context, p model.Principal) (model.User, error)
}

// RefreshAPI rotates refresh tokens.
type RefreshAPI interface {
    Refresh(ctx context.Context, refreshToken string) (service.TokenPair, error)
}

// WorkshopContextAPI selects and validates the workshop a principal acts on.
type WorkshopContextAPI interface {
    SelectWorkshop(ctx context.Context, p model.Principal, workshopID uint64) (model.MembershipContext, error)
    CurrentWorkshop(ctx context.Context, p model.Principal, workshopID *uint64) (*model.MembershipContext, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Auth      AuthAPI
    Tokens    RefreshAPI
    Workshops WorkshopContextAPI
    Cookies   CookieConfig
    Logger    *slog.Logger
}

func NewAuthHandler(auth AuthAPI, tokens RefreshAPI, workshops WorkshopContextAPI, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
    return &AuthHandler{Auth: auth, Tokens: tokens, Workshops: workshops, Cookies: cookies, Logger: logger}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name"`
    Surname  string `json:"surname"`
    Email    string `json:"email"`
    Phone    string `json:"phone"`
    Password string `json:"password"`
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type selectWorkshopReq struct {
    WorkshopID uint64 `json:"workshop_id"`
}

type userView struct {
    ID        uint64              `json:"id"`
    Name      string              `json:"name"`
    Surname   string              `json:"surname"`
    Email     string              `json:"email"`
    Phone     string              `json:"phone"`
    CompanyID *uint64             `json:"company_id"`
    Kind      model.PrincipalKind `json:"kind"`
}

type sessionResp struct {
    User             userView  `json:"user"`
    AccessExpiresAt  time.Time `json:"access_expires_at"`
    RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func newUserView(u model.User) userView {
    return userView{
        ID:        u.ID,
        Name:      u.Name,
        Surname:   u.Surname,
        Email:     u.Email,
        Phone:     u.Phone,
        CompanyID: u.CompanyID,
        Kind:      model.NewPrincipal(u.ID, u.CompanyID).Kind,
    }
}

func newSessionResp(s service.Session) sessionResp {
    return sessionResp{
        User:             newUserView(s.User),
        AccessExpiresAt:  s.Tokens.AccessExpiresAt,
        RefreshExpiresAt: s.Tokens.RefreshExpiresAt,
    }
}

// Register creates an account and opens a session for it.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    s, err := h.Auth.Register(ctx, service.Registration{
        Name:     req.Name,
        Surname:  req.Surname,
        Email:    req.Email,
        Phone:    req.Phone,
        Password: req.Password,
    })
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    h.Cookies.setSession(c, s.Tokens)
    return c.JSON(http.StatusCreated, newSessionResp(s))
}

// Login verifies credentials and sets the session cookies.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.Email == "" || req.Password == "" {
        return badRequest(c, "email and password are required")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    s, err := h.Auth.Login(ctx, req.Email, req.Password)
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    h.Cookies.setSession(c, s.Tokens)
    return c.JSON(http.StatusOK, newSessionResp(s))
}

// Refresh rotates the refresh cookie and issues a new access cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    pair, err := h.Tokens.Refresh(ctx, cookieValue(c, middleware.RefreshCookie))
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    h.Cookies.setSession(c, pair)
    return c.JSON(http.StatusOK, echo.Map{
        "access_expires_at":  pair.AccessExpiresAt,
        "refresh_expires_at": pair.RefreshExpiresAt,
    })
}

// Logout clears cookies according to the principal.  An administrator with a
// selected workshop only leaves the workshop; everyone else loses the
// session, which is also revoked server-side.  An expired access token next
// to a workshop cookie answers 401 and clears nothing.
func (h *AuthHandler) Logout(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    var principal *model.Principal
    if p, ok := middleware.PrincipalFrom(c); ok {
        principal = &p
    }
    hasWorkshop := cookieValue(c, middleware.WorkshopCookie) != ""

    plan, err := h.Auth.Logout(ctx, principal, hasWorkshop, cookieValue(c, middleware.RefreshCookie))
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    if plan.ClearWorkshop {
        h.Cookies.clear(c, middleware.WorkshopCookie)
    }
    if plan.ClearSession {
        h.Cookies.clear(c, middleware.AccessCookie)
        h.Cookies.clear(c, middleware.RefreshCookie)
    }
    return c.JSON(http.StatusOK, echo.Map{"session_cleared": plan.ClearSession})
}

// LoginWorkshop resolves an employee's workshop from the access cookie and
// sets the workshop cookie.  A null workshop is a valid answer.
func (h *AuthHandler) LoginWorkshop(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    mc, err := h.Auth.LoginWorkshop(ctx, cookieValue(c, middleware.AccessCookie))
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    if mc != nil {
        h.Cookies.setWorkshop(c, mc.WorkshopID)
    }
    return c.JSON(http.StatusOK, echo.Map{"workshop": mc})
}

// SelectWorkshop scopes an administrator to one of its workshops.
func (h *AuthHandler) SelectWorkshop(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    var req selectWorkshopReq
    if err := c.Bind(&req); err != nil || req.WorkshopID == 0 {
        return badRequest(c, "workshop_id is required")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    mc, err := h.Workshops.SelectWorkshop(ctx, p, req.WorkshopID)
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    h.Cookies.setWorkshop(c, mc.WorkshopID)
    return c.JSON(http.StatusOK, echo.Map{"workshop": mc})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Auth.Profile(ctx, p)
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, newUserView(u))
}

// MeWorkshop returns the workshop context of the workshop cookie, or null
// when it is missing or no longer valid for the principal.
func (h *AuthHandler) MeWorkshop(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    mc, err := h.Workshops.CurrentWorkshop(ctx, p, selectedWorkshop(c))
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"workshop": mc})
}
