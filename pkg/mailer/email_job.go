package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either a raw Subject/Text/HTML triple is given, or Template names one of
// the embedded templates rendered with Data by the worker.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "verify_email" or "reset_otp"
	Data     map[string]any `json:"data,omitempty"`
}
