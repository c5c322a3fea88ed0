package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"todaytasks/api/internal/todo"
)

//go:embed templates/*.html
var templateFS embed.FS

var listTemplate = template.Must(template.New("todos.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"filterLabel": filterLabel,
}).ParseFS(templateFS, "templates/todos.html"))

// TemplateData holds data for list template rendering
type TemplateData struct {
	Title       string
	Accent      template.CSS
	Filter      todo.Filter
	Tasks       []todo.Task
	Total       int
	Remaining   int
	GeneratedAt time.Time
}

// RenderListHTML renders the list template with provided data
func RenderListHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := listTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func filterLabel(f todo.Filter) string {
	switch f {
	case todo.FilterCompleted:
		return "Completed"
	case todo.FilterAll:
		return "All tasks"
	default:
		return "Active"
	}
}
