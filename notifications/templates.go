package notifications

import (
	"bytes"
	"html/template"
)

const (
	codeSubject  = "Account Verification✔ for Loan Manager"
	adminSubject = "Loan approval notification"

	ApprovedTitle = "Loan Manager - Application Approved"
	ApprovedBody  = "Congratulations! Your loan application has been approved"
	RejectedTitle = "Loan Manager - Application Rejected"
	RejectedBody  = "We regret to inform that your loan application has been rejected for some reason. Click to view comment"
)

var codeTemplate = template.Must(template.New("code").Parse(`
<h2>Please use the below code to activate your account</h2>
<h2>{{.Code}}</h2>
<p><b>NOTE: </b> The above code expires in 10 minutes.</p>
<p>Thanks</p>
<p>Loan Manager Team</p>
`))

var adminTemplate = template.Must(template.New("admin").Parse(`
<h3>Dear Admin</h3>
<h3>A new loan application is pending for your approval. Please visit the admin dashboard to approve loan application</h3>
<h3><a href="{{.DashboardURL}}" target="_blank">Go to Dashboard</a></h3>
<p>Thanks</p>
<p>Loan Manager Admin</p>
`))

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
