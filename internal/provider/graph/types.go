package graph

import (
	"encoding/base64"

	"github.com/dsw-integrations/email-submitter/internal/email"
)

// sendMailRequest is the top-level request body for the Graph API sendMail
// endpoint.
type sendMailRequest struct {
	Message sendMailMessage `json:"message"`
}

type sendMailMessage struct {
	Subject      string            `json:"subject"`
	Body         messageBody       `json:"body"`
	ToRecipients []recipient       `json:"toRecipients"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// graphAttachment represents a file attachment in a Graph API request.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// tokenResponse represents the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// graphErrorResponse represents an error response from the Graph API.
type graphErrorResponse struct {
	Error graphError `json:"error"`
}

type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a composed notification into a Graph API
// sendMail request body: a plain-text body, the single recipient, and the
// attachments base64-encoded in order with derived file names.
func buildSendMailRequest(msg *email.Email) *sendMailRequest {
	attachments := make([]graphAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename(),
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject: msg.Subject,
			Body: messageBody{
				ContentType: "text",
				Content:     msg.TextBody,
			},
			ToRecipients: []recipient{
				{EmailAddress: emailAddress{Address: msg.To}},
			},
			Attachments: attachments,
		},
	}
}
