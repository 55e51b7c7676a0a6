package present

import (
	"regexp"
	"strings"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
)

var blankRun = regexp.MustCompile(`[ \t]{2,}`)

// SplitMedia strips media tokens from body and returns them in order.
// Tokens whose target is not an http(s) URL are left in the text.
func SplitMedia(body string) (string, []models.Attachment) {
	var found []models.Attachment
	text := models.MediaToken.ReplaceAllStringFunc(body, func(token string) string {
		m := models.MediaToken.FindStringSubmatch(token)
		if !models.MediaURL(m[2]) {
			return token
		}
		kind := models.AttachmentImage
		if m[1] == "VOICE" {
			kind = models.AttachmentVoice
		}
		found = append(found, models.Attachment{Kind: kind, URL: m[2]})
		return ""
	})
	text = blankRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), found
}

// media resolves the attachments of msg. Structured attachments win over
// inline tokens.
func media(msg models.ChatMessage) (string, []models.Attachment) {
	text, inline := SplitMedia(msg.Body)
	if len(msg.Attachments) > 0 {
		return text, msg.Attachments
	}
	return text, inline
}
