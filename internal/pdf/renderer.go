// Package pdf renders printable certificates by loading an HTML template
// into headless Chrome and printing the page to PDF.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// CertificateData holds the fields printed on a certificate.
type CertificateData struct {
	CertID      string
	StudentName string
	Course      string
	Grade       string
	IssueDate   string
	Revoked     bool
	VerifyURL   string
	QRDataURI   template.URL
}

// DataURI builds a data: URI for embedding an image in the template.
func DataURI(mimeType, base64Data string) template.URL {
	return template.URL("data:" + mimeType + ";base64," + base64Data)
}

// Renderer turns certificate data into a PDF document.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the built-in certificate template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("certificate").Parse(certificateTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the certificate PDF. It launches a headless Chrome tab,
// injects the rendered HTML, and prints it.
func (r *Renderer) Render(ctx context.Context, data CertificateData) ([]byte, error) {
	var rendered bytes.Buffer
	if err := r.tmpl.Execute(&rendered, data); err != nil {
		return nil, fmt.Errorf("failed to render certificate HTML: %w", err)
	}

	cctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(cctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, rendered.String()).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print certificate PDF: %w", err)
	}

	return pdfBuffer, nil
}

const certificateTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Georgia, serif; margin: 0; }
  .certificate {
    border: 12px double #1f3a5f;
    margin: 24px;
    padding: 48px 64px;
    text-align: center;
    position: relative;
  }
  h1 { font-size: 34px; color: #1f3a5f; letter-spacing: 2px; margin-bottom: 4px; }
  .subtitle { font-size: 14px; color: #666; text-transform: uppercase; letter-spacing: 4px; }
  .student { font-size: 30px; margin: 28px 0 8px; }
  .course { font-size: 20px; margin: 8px 0; }
  .grade { font-size: 16px; color: #333; }
  .meta { margin-top: 32px; font-size: 12px; color: #555; }
  .qr { position: absolute; right: 40px; bottom: 40px; }
  .qr img { width: 110px; height: 110px; }
  .revoked {
    position: absolute; top: 40%; left: 10%; right: 10%;
    font-size: 64px; color: rgba(200, 30, 30, 0.35);
    transform: rotate(-18deg); text-transform: uppercase; letter-spacing: 10px;
  }
</style>
</head>
<body>
<div class="certificate">
  {{if .Revoked}}<div class="revoked">Revoked</div>{{end}}
  <div class="subtitle">Certificate of Completion</div>
  <h1>This certifies that</h1>
  <div class="student">{{.StudentName}}</div>
  <div class="course">has completed {{.Course}}</div>
  <div class="grade">with grade {{.Grade}}</div>
  <div class="meta">
    Certificate {{.CertID}} &middot; issued {{.IssueDate}}<br>
    Verify at {{.VerifyURL}}
  </div>
  {{if .QRDataURI}}<div class="qr"><img src="{{.QRDataURI}}" alt="verification QR"></div>{{end}}
</div>
</body>
</html>`
