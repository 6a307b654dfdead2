// Package keys maps a conversation/document identity onto deterministic
// object storage paths. Keys are reconstructible from their inputs alone, so
// a page-image key handed back by the assistant resolves to its siblings
// without any extra bookkeeping.
package keys

import "fmt"

// DefaultConversation keeps keys well-formed when the caller supplies no
// conversation id.
const DefaultConversation = "no-conv"

// Conversation returns the caller-supplied id, or the default placeholder
// when blank.
func Conversation(conversationID string) string {
	if conversationID == "" {
		return DefaultConversation
	}
	return conversationID
}

// PDF is the key of the original uploaded document.
func PDF(conversationID, docID string) string {
	return fmt.Sprintf("pdfs/%s/%s.pdf", Conversation(conversationID), docID)
}

// PageImage is the key of one rendered page, 1-based.
func PageImage(conversationID, docID string, page int) string {
	return fmt.Sprintf("pages/%s/%s/page_%d.png", Conversation(conversationID), docID, page)
}

// PageText is the key of one page's OCR text, 1-based.
func PageText(conversationID, docID string, page int) string {
	return fmt.Sprintf("text/%s/%s/page_%d.txt", Conversation(conversationID), docID, page)
}
