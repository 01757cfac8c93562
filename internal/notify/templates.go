package notify

import "html/template"

var taskTemplate = template.Must(template.New("task").Parse(`<div style="max-width: 600px; margin: 0 auto; font-family: Arial, sans-serif;">
  <h2>Hi {{.Name}},</h2>
  <p style="font-size: 16px;">{{.Intro}}</p>
  <p style="font-size: 18px; font-weight: bold; color: #007bff; margin: 8px 0;">{{.Title}}</p>
  <div style="border: 1px solid #ddd; padding: 12px 16px; border-radius: 8px; margin-bottom: 30px;">
    <p style="margin: 6px 0;"><strong>Description:</strong> {{.Description}}</p>
    <p style="margin: 6px 0;"><strong>Due Date:</strong> {{.DueDate}}</p>
  </div>
  {{if .Link}}<a href="{{.Link}}" style="background-color: #007bff; padding: 12px 24px; border-radius: 5px; color: #fff; font-size: 16px; text-decoration: none;">View Task</a>{{end}}
  <p style="margin-top: 20px; font-size: 14px; color: #6c757d;">Please make sure to review and complete it before the due date.</p>
</div>`))
