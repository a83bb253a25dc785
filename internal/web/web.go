// Package web holds the server rendered marketing pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"talentpool-backend/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is data shared by every marketing page
type Page struct {
	Title   string
	Year    int
	Plans   []model.Plan
	Form    ContactForm
	Error   string
	Success bool
}

// ContactForm is the contact page form
type ContactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Message string `form:"message"`
}

// NewPage build page data with title
func NewPage(title string) Page {
	return Page{Title: title, Year: time.Now().Year()}
}

// FormatPrice render minor currency unit as major unit, zero is "Free"
func FormatPrice(minor int64) string {
	if minor == 0 {
		return "Free"
	}
	return fmt.Sprintf("%d.%02d / period", minor/100, minor%100)
}

// Templates parse every embedded page
func Templates() (*template.Template, error) {
	return template.New("web").
		Funcs(template.FuncMap{"price": FormatPrice}).
		ParseFS(templateFS, "templates/*.html")
}
