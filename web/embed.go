// Package web holds the server-rendered pages and email bodies.
package web

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

// ConfirmationPage is the data for the page a parent sees after clicking the email link.
type ConfirmationPage struct {
	Success bool
	Message string
}

// ParentEmail is the data for the consent request email.
type ParentEmail struct {
	Handle string
	Link   string
}

// DigestItem is one memory rendered in the digest email.
type DigestItem struct {
	ImageURL       string
	Caption        string
	AudioURL       string
	ProcessedLabel string
}

// Digest is the data for the parent digest email.
type Digest struct {
	StudentName string
	Items       []DigestItem
}

// Renderer executes the embedded templates. It is safe for concurrent use.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("web: parse text templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

// MustRenderer is NewRenderer for process start-up and tests.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) ConfirmationPage(data ConfirmationPage) ([]byte, error) {
	return r.executeHTML("confirm.html", data)
}

// ParentEmail returns the plain text and HTML bodies.
func (r *Renderer) ParentEmail(data ParentEmail) (string, string, error) {
	var text bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, "parent_email.txt", data); err != nil {
		return "", "", fmt.Errorf("web: render parent_email.txt: %w", err)
	}
	html, err := r.executeHTML("parent_email.html", data)
	if err != nil {
		return "", "", err
	}
	return text.String(), string(html), nil
}

func (r *Renderer) Digest(data Digest) (string, error) {
	if data.StudentName == "" {
		data.StudentName = "your student"
	}
	html, err := r.executeHTML("digest.html", data)
	if err != nil {
		return "", err
	}
	return string(html), nil
}

func (r *Renderer) executeHTML(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.html.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("web: render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
