package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/ayush/whattobuild/internal/models"
)

const digestSize = 3

var layout = template.Must(template.New("layout").Parse(`<div style="font-family:sans-serif;max-width:600px;margin:0 auto">
  <h2 style="color:#111">{{.Heading}}</h2>
  {{range .Paragraphs}}<p>{{.}}</p>
  {{end}}{{if .Items}}<ol style="padding-left:20px">{{range .Items}}<li><strong>{{.Title}}</strong><br/><span style="color:#6b7280">{{.Description}}</span></li>{{end}}</ol>
  {{end}}<p style="margin-top:24px">
    <a href="{{.ButtonURL}}" style="background:#111;color:#fff;padding:10px 20px;border-radius:6px;text-decoration:none;display:inline-block">{{.ButtonLabel}}</a>
  </p>
  <p style="margin-top:32px;font-size:12px;color:#9ca3af">{{.Footer}}</p>
</div>`))

type item struct {
	Title       string
	Description string
}

type page struct {
	Heading     string
	Paragraphs  []string
	Items       []item
	ButtonURL   string
	ButtonLabel string
	Footer      string
}

func render(p page) string {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, p); err != nil {
		// the template is static, so this only happens on a programming error
		panic(fmt.Sprintf("notify: render: %v", err))
	}
	return buf.String()
}

// Templates renders the service's emails with links into the web app.
type Templates struct {
	appURL string
}

func NewTemplates(appURL string) Templates {
	return Templates{appURL: strings.TrimRight(appURL, "/")}
}

// MonitoringDigest lists the top pain points of a monitoring run.
func (t Templates) MonitoringDigest(to, niche, requestID string, painPoints []models.PainPoint) Message {
	top := painPoints
	if len(top) > digestSize {
		top = top[:digestSize]
	}
	items := make([]item, 0, len(top))
	for i, pp := range top {
		items = append(items, item{Title: fmt.Sprintf("%d. %s", i+1, pp.Title), Description: pp.Description})
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("New insights for %q", niche),
		HTML: render(page{
			Heading:     fmt.Sprintf("New insights for %q", niche),
			Paragraphs:  []string{"Your weekly niche monitoring found new pain points:"},
			Items:       items,
			ButtonURL:   fmt.Sprintf("%s/results/%s", t.appURL, requestID),
			ButtonLabel: "View full results",
			Footer:      fmt.Sprintf("You're receiving this because you're monitoring %q on WhatToBuild.", niche),
		}),
	}
}

// NoCredits tells the owner a monitor was skipped for lack of credits.
func (t Templates) NoCredits(to, niche string) Message {
	return Message{
		To:      to,
		Subject: "Monitoring paused - out of credits",
		HTML: render(page{
			Heading: "Monitoring paused - out of credits",
			Paragraphs: []string{
				fmt.Sprintf("Your weekly monitoring for %q couldn't run because you don't have enough credits.", niche),
				"Each monitoring run uses 1 credit. Top up your credits to keep receiving weekly insights.",
			},
			ButtonURL:   t.appURL + "/settings",
			ButtonLabel: "Buy credits",
			Footer:      fmt.Sprintf("You're receiving this because you're monitoring %q on WhatToBuild.", niche),
		}),
	}
}

// Welcome greets a new account and mentions the starter credits.
func (t Templates) Welcome(to, name string) Message {
	greeting := "Hi there,"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Welcome to WhatToBuild - %d free credits inside", models.StarterCredits),
		HTML: render(page{
			Heading: "Welcome to WhatToBuild!",
			Paragraphs: []string{
				greeting,
				fmt.Sprintf("You've got %d free credits to start discovering real pain points and product opportunities.", models.StarterCredits),
				"Enter a niche, we read real conversations across Reddit, Quora, reviews and forums, and rank the pain points with demand data and product ideas.",
			},
			ButtonURL:   t.appURL + "/dashboard",
			ButtonLabel: "Start your first research",
			Footer:      "You're receiving this because you signed up for WhatToBuild.",
		}),
	}
}
