package integrations

import (
	"context"
	"strings"
	"time"
)

// PDFRenderer turn HTML document into PDF
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// Gotenberg renders HTML through a Gotenberg chromium route
type Gotenberg struct {
	url string
}

// NewGotenberg create renderer, disabled when url is empty
func NewGotenberg(url string) *Gotenberg {
	return &Gotenberg{url: url}
}

// RenderPDF implements PDFRenderer
func (g *Gotenberg) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	if g == nil || g.url == "" {
		return nil, ErrDisabled
	}

	resp, err := newClient(g.url, 60*time.Second).R().
		SetContext(ctx).
		SetHeader("Accept", "application/pdf").
		SetFileReader("files", "index.html", strings.NewReader(html)).
		Post("/forms/chromium/convert/html")
	if err := checkResponse("pdf", resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
