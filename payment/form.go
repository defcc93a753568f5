package payment

import (
	"html/template"
	"sort"
	"strings"

	"go.pilab.hu/selfcare/domain"
)

// The processor accepts payments only as a browser form POST, so the session
// is rendered into a self-submitting HTML page. Submission is delayed a
// moment to let the page paint; a manual button appears as fallback in case
// scripting is disabled or the automatic submit never fired.
var redirectFormTmpl = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Redirecting to payment</title>
<style>
body { font-family: sans-serif; text-align: center; padding-top: 4em; }
#manual { display: none; margin-top: 2em; }
button { padding: 0.6em 2em; font-size: 1em; }
</style>
</head>
<body>
<p>Redirecting you to the payment page&hellip;</p>
<form id="pay" method="post" action="{{.Target}}">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<div id="manual">
<p>If you are not redirected automatically:</p>
<button type="submit">Continue to payment</button>
</div>
</form>
<script>
setTimeout(function () { document.getElementById("pay").submit(); }, {{.SubmitDelayMS}});
setTimeout(function () { document.getElementById("manual").style.display = "block"; }, {{.ManualDelayMS}});
</script>
</body>
</html>
`))

type formField struct {
	Name  string
	Value string
}

type formData struct {
	Target        string
	Fields        []formField
	SubmitDelayMS int
	ManualDelayMS int
}

// RenderRedirectForm produces the self-submitting payment form for a session.
// Field order is stable so rendered pages are reproducible.
func RenderRedirectForm(sess *domain.PaymentSession) (string, error) {
	fields := make([]formField, 0, len(sess.FormFields))
	for name, value := range sess.FormFields {
		fields = append(fields, formField{Name: name, Value: value})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	var buf strings.Builder
	err := redirectFormTmpl.Execute(&buf, formData{
		Target:        sess.FormTarget,
		Fields:        fields,
		SubmitDelayMS: 2500,
		ManualDelayMS: 5000,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
