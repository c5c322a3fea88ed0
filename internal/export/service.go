package export

import (
	"context"
	"fmt"
	"html/template"
	"regexp"
	"time"

	"todaytasks/api/internal/settings"
	"todaytasks/api/internal/todo"
)

// TaskSource supplies the current task list.
type TaskSource interface {
	Read(ctx context.Context) ([]todo.Task, error)
}

// SettingsSource supplies the display title and accent color.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{3,8}$`)

// Service provides task list export functionality
type Service struct {
	tasks    TaskSource
	settings SettingsSource
	now      func() time.Time
	printPDF func(ctx context.Context, html string) ([]byte, error)
}

func NewService(tasks TaskSource, settings SettingsSource) *Service {
	return &Service{
		tasks:    tasks,
		settings: settings,
		now:      time.Now,
		printPDF: printPDF,
	}
}

// Export renders the tasks visible under req.Filter in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	tasks, err := s.tasks.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	display, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	visible := todo.Visible(tasks, req.Filter)
	data := TemplateData{
		Title:       display.Title,
		Accent:      template.CSS(settings.DefaultAccentColor),
		Filter:      req.Filter,
		Tasks:       visible,
		Total:       len(tasks),
		Remaining:   len(todo.Visible(tasks, todo.FilterActive)),
		GeneratedAt: s.now(),
	}
	if hexColor.MatchString(display.AccentColor) {
		data.Accent = template.CSS(display.AccentColor)
	}

	html, err := RenderListHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	filename := sanitizeFilename(display.Title)
	switch req.Format {
	case FormatHTML, "":
		return &Result{
			Data:     []byte(html),
			Filename: filename + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		pdf, err := s.printPDF(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     pdf,
			Filename: filename + ".pdf",
			MimeType: "application/pdf",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
