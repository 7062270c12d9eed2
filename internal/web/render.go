package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"olympics-frontend/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pages that render inside the shared layout.
var pageTemplates = []string{
	"home.html",
	"offers.html",
	"login.html",
	"register.html",
	"tickets.html",
	"admin_dashboard.html",
	"admin_validate.html",
	"error.html",
}

var templateFuncs = template.FuncMap{
	"price": func(p float64) string {
		return fmt.Sprintf("€%.2f", p)
	},
	"date": func(t time.Time) string {
		return t.Format("02 Jan 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("02 Jan 2006 15:04")
	},
}

// Renderer implements echo.Renderer over the embedded templates. Each page
// is parsed together with the layout so blocks resolve per page.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses all embedded page templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template)}
	for _, page := range pageTemplates {
		t, err := template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// Render renders the named page template.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// pageData is the payload every template receives.
type pageData struct {
	Title   string
	Session *models.Session
	Flash   string
	Error   string
	CSRF    string
	Data    any
}

// newPageData assembles common template state: current session, pending
// flash message, CSRF token.
func (s *Server) newPageData(c echo.Context, title string, data any) pageData {
	csrf, _ := c.Get("csrf").(string)
	return pageData{
		Title:   title,
		Session: sessionFromContext(c),
		Flash:   popFlash(c),
		CSRF:    csrf,
		Data:    data,
	}
}
