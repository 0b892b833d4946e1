package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Email is deliberately loose. The mailbox is verified by delivering to it,
// not by regex.
func Email(value string) bool {
	value = strings.TrimSpace(value)
	at := strings.Index(value, "@")
	return at > 0 && at < len(value)-1
}

func MaxLen(value string, limit int) bool {
	return len(value) <= limit
}
