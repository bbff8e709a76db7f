// Package web embeds the dashboard's page templates and static assets.
package web

import "embed"

// TemplatesFS holds the html/template sources; each file defines named templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the client script served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
