package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const brand = "Personal Trainer"

type SlotView struct {
	Date      string
	StartTime string
	EndTime   string
}

type BookingData struct {
	ClientEmail     string
	ClientName      string
	Primary         SlotView
	Fallback        *SlotView
	AppointmentsURL string
}

const layout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
{{template "content" .}}
<p style="margin-top: 30px; font-size: 12px; color: #666;">` + brand + `</p>
</div>
</body>
</html>`

const slotPartial = `{{define "slot"}}<p><strong>Date:</strong> {{.Date}}<br><strong>Time:</strong> {{.StartTime}} - {{.EndTime}}</p>{{end}}`

var templates = map[string]string{
	"access": `{{define "content"}}
<h2>Admin access link</h2>
<p>You asked to sign in to the admin dashboard. Use the link below:</p>
<p><a href="{{.Link}}">Open admin dashboard</a></p>
<p>This link expires in {{.Minutes}} minutes and works once.</p>
<p>If you did not ask for it, ignore this email.</p>
{{end}}`,

	"confirmation": `{{define "content"}}
<h2>Appointment confirmed</h2>
<p>Hello {{if .ClientName}}{{.ClientName}}{{else}}there{{end}},</p>
<p>Your appointment is booked.</p>
<h3>Main slot</h3>
{{template "slot" .Primary}}
{{with .Fallback}}<h3>Alternative slot</h3>
{{template "slot" .}}
<p><em>This slot is held as an alternative in case the appointment must be rescheduled.</em></p>{{end}}
<p><a href="{{.AppointmentsURL}}">See my appointments</a></p>
{{end}}`,

	"alert": `{{define "content"}}
<h2>New appointment</h2>
<p><strong>Name:</strong> {{if .ClientName}}{{.ClientName}}{{else}}not provided{{end}}<br>
<strong>Email:</strong> {{.ClientEmail}}</p>
<h3>Main slot</h3>
{{template "slot" .Primary}}
{{with .Fallback}}<h3>Alternative slot</h3>
{{template "slot" .}}{{end}}
{{end}}`,

	"rescheduled": `{{define "content"}}
<h2>Appointment rescheduled</h2>
<p>Hello {{if .ClientName}}{{.ClientName}}{{else}}there{{end}},</p>
<p>Your appointment moved to a new slot.</p>
{{template "slot" .Primary}}
{{with .Fallback}}<h3>New alternative slot</h3>
{{template "slot" .}}{{end}}
<p><a href="{{.AppointmentsURL}}">See my appointments</a></p>
{{end}}`,

	"cancelled": `{{define "content"}}
<h2>Appointment cancelled</h2>
<p>Hello {{if .ClientName}}{{.ClientName}}{{else}}there{{end}},</p>
<p>The appointment below was cancelled.</p>
{{template "slot" .Primary}}
<p><a href="{{.AppointmentsURL}}">See my appointments</a></p>
{{end}}`,
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, body := range templates {
		t := template.Must(template.New(name).Parse(layout))
		template.Must(t.Parse(slotPartial))
		template.Must(t.Parse(body))
		out[name] = t
	}
	return out
}()

func render(name string, data any) (string, error) {
	t, ok := parsed[name]
	if !ok {
		return "", fmt.Errorf("notify: unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}

	return buf.String(), nil
}

func AccessLink(to, link string, ttl time.Duration) (Message, error) {
	body, err := render("access", struct {
		Link    string
		Minutes int
	}{Link: link, Minutes: int(ttl / time.Minute)})

	return Message{To: to, Subject: "Admin access link - " + brand, Body: body}, err
}

func BookingConfirmation(data BookingData) (Message, error) {
	body, err := render("confirmation", data)

	return Message{To: data.ClientEmail, Subject: "Appointment confirmed - " + brand, Body: body}, err
}

func BookingAlert(adminEmail string, data BookingData) (Message, error) {
	body, err := render("alert", data)

	return Message{To: adminEmail, Subject: "New appointment - " + brand, Body: body}, err
}

func Rescheduled(data BookingData) (Message, error) {
	body, err := render("rescheduled", data)

	return Message{To: data.ClientEmail, Subject: "Appointment rescheduled - " + brand, Body: body}, err
}

func Cancelled(data BookingData) (Message, error) {
	body, err := render("cancelled", data)

	return Message{To: data.ClientEmail, Subject: "Appointment cancelled - " + brand, Body: body}, err
}
