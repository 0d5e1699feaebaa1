package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

// Message is one rendered notification.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type messageData struct {
	Subject          string
	Interest         string
	Count            int
	AverageRelevance float64
	Matches          []Match
}

// Renderer renders notification bodies.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	html, err := htmltemplate.New("notification.html").
		Funcs(htmltemplate.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/notification.html")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}

	text, err := texttemplate.New("notification.txt").
		Funcs(texttemplate.FuncMap{"join": strings.Join, "inc": func(i int) int { return i + 1 }}).
		ParseFS(templateFS, "templates/notification.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}

	return &Renderer{html: html, text: text}, nil
}

// Subject builds the mail subject for count matches of interest.
func Subject(count int, interest string) string {
	noun := "articles"
	if count == 1 {
		noun = "article"
	}

	return fmt.Sprintf("[SheepAI] %d new %s matching %q", count, noun, interest)
}

// Render builds the message for one subscriber's ranked matches.
func (r *Renderer) Render(interest string, matches []Match) (Message, error) {
	data := messageData{
		Subject:          Subject(len(matches), interest),
		Interest:         interest,
		Count:            len(matches),
		AverageRelevance: AverageRelevance(matches),
		Matches:          matches,
	}

	var html, text bytes.Buffer

	if err := r.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("execute html template: %w", err)
	}

	if err := r.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("execute text template: %w", err)
	}

	return Message{Subject: data.Subject, HTML: html.String(), Text: text.String()}, nil
}
