package models

// MailPayload is the queued outbound email, consumed by the async mail
// worker.
type MailPayload struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTMLBody  string `json:"htmlBody"`
	PlainBody string `json:"plainBody"`
}
