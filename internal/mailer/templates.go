package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family:Helvetica,Arial,sans-serif;color:#111;background:#fafafa;padding:24px">
<div style="max-width:560px;margin:0 auto;background:#fff;padding:32px">
<h1 style="font-size:20px;letter-spacing:2px">OIKO</h1>
{{template "content" .}}
<p style="font-size:12px;color:#777;margin-top:32px">Oiko streetwear</p>
</div></body></html>{{end}}`

const itemsTable = `{{define "items"}}<table style="width:100%;border-collapse:collapse">
{{range .Items}}<tr><td>{{.ProductName}}{{if .Size}} ({{.Size}}{{if .Color}}, {{.Color}}{{end}}){{end}} x {{.Quantity}}</td><td style="text-align:right">{{money .Price}}</td></tr>
{{end}}<tr><td>Shipping</td><td style="text-align:right">{{money .Shipping}}</td></tr>
<tr><td><strong>Total</strong></td><td style="text-align:right"><strong>{{money .Total}}</strong></td></tr>
</table>{{end}}`

var contents = map[string]string{
	"order_received": `<p>Hi {{.CustomerInfo.Name}},</p>
<p>We received your order <strong>{{.OrderRef}}</strong>. We will email you again once payment is confirmed.</p>
{{template "items" .}}
{{if .PointsEarned}}<p>This order earns you {{.PointsEarned}} fragment points once paid.</p>{{end}}`,

	"payment_confirmed": `<p>Hi {{.CustomerInfo.Name}},</p>
<p>Payment for order <strong>{{.OrderRef}}</strong> is confirmed and we are getting it ready.</p>
{{template "items" .}}
{{if .PointsEarned}}<p>{{.PointsEarned}} fragment points were added to your balance.</p>{{end}}`,

	"order_shipped": `<p>Hi {{.CustomerInfo.Name}},</p>
<p>Your order <strong>{{.OrderRef}}</strong> is on its way.</p>
{{if .TrackingNumber}}<p>Tracking number: <strong>{{.TrackingNumber}}</strong></p>{{end}}
<p>Shipping to {{.CustomerInfo.Line1}}, {{.CustomerInfo.City}} {{.CustomerInfo.PostalCode}}.</p>`,

	"order_delivered": `<p>Hi {{.CustomerInfo.Name}},</p>
<p>Your order <strong>{{.OrderRef}}</strong> has been delivered. Enjoy the fit.</p>`,

	"reward_claimed": `<p>Hi {{.Name}},</p>
<p>Your claim of {{.Points}} fragment points for the <strong>{{.Tier}}</strong> reward is in. Our team will reach out shortly.</p>`,

	"reward_claimed_admin": `<p>{{.Name}} ({{.Email}}) claimed {{.Points}} fragment points.</p>
<p>Tier: {{.Tier}}<br>Claimed at: {{.ClaimedAt}}</p>`,

	"trial_received": `<p>Hi {{.Name}},</p>
<p>Thanks for requesting a trial in {{.City}}. We will confirm a slot within two working days.</p>
{{if .Size}}<p>Requested size: {{.Size}}</p>{{end}}`,

	"welcome_subscriber": `<p>Welcome to Oiko.</p>
<p>You will hear about new drops before anyone else. You can unsubscribe at any time.</p>`,
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
}

var templates = mustParse()

func mustParse() map[string]*template.Template {
	out := make(map[string]*template.Template, len(contents))
	for name, content := range contents {
		t := template.Must(template.New(name).Funcs(funcs).Parse(layout))
		template.Must(t.Parse(itemsTable))
		template.Must(t.Parse(`{{define "content"}}` + content + `{{end}}`))
		out[name] = t
	}
	return out
}

func render(name string, data any) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
