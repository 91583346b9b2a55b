package handlers

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	httpx "github.com/dropDatabas3/loginbox/internal/http"
	"github.com/dropDatabas3/loginbox/internal/oauth"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>loginbox</title></head>
<body>
{{if .Email}}
  <h1>Hola, {{if .Name}}{{.Name}}{{else}}{{.Email}}{{end}}</h1>
  <p>{{.Email}}</p>
  <p><a href="/logout">Cerrar sesión</a></p>
{{else}}
  <h1>Iniciar sesión</h1>
  <ul>
  {{range .Providers}}
    <li><a href="/login/{{.}}">Entrar con {{.}}</a></li>
  {{end}}
  </ul>
{{end}}
</body>
</html>
`))

type indexData struct {
	Email     string
	Name      string
	Providers []string
}

// IndexHandler renderiza el home leyendo las cookies de identidad. Si no hay
// sesión, lista los providers registrados.
type IndexHandler struct {
	Providers *oauth.Registry
}

func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := indexData{Providers: h.Providers.Available()}
	data.Email = readIdentityCookie(r, httpx.EmailCookieName)
	data.Name = readIdentityCookie(r, httpx.NameCookieName)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTmpl.Execute(w, data)
}

func readIdentityCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		v = c.Value
	}
	return strings.TrimSpace(v)
}
