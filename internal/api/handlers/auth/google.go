package auth

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/speakup/internal/api/handlers"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
)

const stateCookie = "oauth_state"

// GoogleLogin godoc
// @Summary Вход через Google
// @Description Перенаправляет на страницу согласия Google. State портала передаётся дальше без изменений.
// @Tags Auth
// @Param state query string false "State портала"
// @Success 307
// @Failure 503 {object} response.ErrorResponse "Вход через Google не настроен"
// @Router /auth/google/login [get]
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.GoogleLogin")

	state := r.URL.Query().Get("state")
	if state == "" {
		state = uuid.NewString()
	}
	target, err := h.service.GoogleLoginURL(state)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// GoogleCallback godoc
// @Summary Завершение входа через Google
// @Description Обменивает код Google на одноразовый код входа и возвращает браузер в портал.
// @Tags Auth
// @Param state query string true "OAuth state"
// @Param code query string true "Код авторизации"
// @Success 303
// @Router /auth/google/callback [get]
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.GoogleCallback")

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		log.Warn("oauth state mismatch")
		h.backToPortal(w, r, url.Values{"error": {"invalid_state"}})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/google", MaxAge: -1})

	code, err := h.service.GoogleCallback(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Warn("google login failed", sl.Err(err))
		h.backToPortal(w, r, url.Values{"error": {"google_login_failed"}, "state": {state}})
		return
	}
	h.backToPortal(w, r, url.Values{"code": {code}, "state": {state}})
}

// GoogleExchange godoc
// @Summary Обмен кода входа на токен
// @Description Код выдаётся после входа через Google, живёт минуту и действует один раз.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginCodeExchange true "Код входа"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Код неизвестен или уже использован"
// @Router /auth/google/exchange [post]
func (h *Handler) GoogleExchange(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.GoogleExchange")

	var req models.LoginCodeExchange
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	token, err := h.service.RedeemLoginCode(r.Context(), req.Code)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("login code redeemed")
	handlers.OK(w, r, map[string]any{"token": token})
}

func (h *Handler) backToPortal(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, h.portalCallback+"?"+q.Encode(), http.StatusSeeOther)
}
