package email

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"qcinspect/frontend/shared/respond"
	"qcinspect/infrastructure/mailer"
)

const maxBody = 32 << 20

// SendEmailCommandHandler mails a rendered report through sender. It is the
// endpoint the delivery dispatcher posts to.
func SendEmailCommandHandler(sender mailer.Sender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var msg mailer.Message
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err == nil {
			err = json.Unmarshal(raw, &msg)
		}
		if err != nil {
			respond.JSON(w, http.StatusBadRequest, mailer.Response{Success: false, Error: "invalid request body: " + err.Error()})
			return
		}

		var attachment []byte
		if msg.PDFBase64 != "" {
			attachment, err = base64.StdEncoding.DecodeString(msg.PDFBase64)
			if err != nil {
				respond.JSON(w, http.StatusBadRequest, mailer.Response{Success: false, Error: "invalid pdfBase64: " + err.Error()})
				return
			}
		}

		err = sender.Send(r.Context(), mailer.Email{
			To:             msg.To,
			Subject:        msg.Subject,
			HTML:           msg.HTML,
			Attachment:     attachment,
			AttachmentName: msg.PDFFilename,
		})
		if err != nil {
			log.Error().Err(err).Strs("to", msg.To).Msg("email error")
			respond.JSON(w, http.StatusInternalServerError, mailer.Response{Success: false, Error: err.Error()})
			return
		}
		respond.JSON(w, http.StatusOK, mailer.Response{Success: true, Message: "Email sent successfully"})
	}
}
