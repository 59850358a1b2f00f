package httpx

import (
	"errors"
	"html/template"
	"net/http"

	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/ports"
)

var denialPage = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Acesso Negado</title></head>
<body>
<main class="access-denied">
<h1>Acesso Negado</h1>
<p>Você não tem permissão para acessar esta página.</p>
<p>Seu perfil atual: <strong>{{.CurrentRoleLabel}}</strong></p>
<p>Perfis permitidos: {{range $i, $r := .AllowedRoles}}{{if $i}}, {{end}}{{$r.Label}}{{end}}</p>
<button type="button" onclick="history.back()">Voltar</button>
<form method="post" action="{{.LogoutPath}}"><button type="submit">Fazer Login com Outra Conta</button></form>
</main>
</body>
</html>
`))

// responseNavigator turns gate decisions into HTTP responses: browsers get
// a 303 redirect or an HTML denial page, API clients get JSON.
type responseNavigator struct {
	w       http.ResponseWriter
	r       *http.Request
	written bool
}

var _ ports.Navigator = (*responseNavigator)(nil)

func newResponseNavigator(w http.ResponseWriter, r *http.Request) *responseNavigator {
	return &responseNavigator{w: w, r: r}
}

func (n *responseNavigator) Redirect(target string) {
	if n.written {
		return
	}
	n.written = true
	if IsHTMX(n.r) {
		hxRedirect(n.w, target)
		return
	}
	if IsBrowserRequest(n.r) {
		http.Redirect(n.w, n.r, target, http.StatusSeeOther)
		return
	}
	WriteJSON(n.w, http.StatusUnauthorized, map[string]string{
		"error":       "authentication_required",
		"message":     "authentication required",
		"redirect_to": target,
	})
}

func (n *responseNavigator) Deny(view domainauth.DenialView) {
	if n.written {
		return
	}
	n.written = true
	if !IsBrowserRequest(n.r) {
		WriteJSON(n.w, http.StatusForbidden, map[string]any{
			"error":         "insufficient_permissions",
			"current_role":  view.CurrentRole,
			"allowed_roles": view.AllowedRoles,
		})
		return
	}
	n.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	n.w.WriteHeader(http.StatusForbidden)
	data := struct {
		domainauth.DenialView
		LogoutPath string
	}{view, "/auth/logout"}
	if err := denialPage.Execute(n.w, data); err != nil {
		// Headers are already sent; nothing left to report to the client.
		return
	}
}

// Written reports whether the navigator produced a response.
func (n *responseNavigator) Written() bool { return n.written }

var errBackendUnavailable = errors.New("authentication backend is not configured")
