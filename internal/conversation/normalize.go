package conversation

// Normalize drops a single trailing human turn, which would otherwise be an
// unanswered prompt. Turn values are left untouched. The input is not
// modified.
func Normalize(c Conversation) Conversation {
	n := len(c.Conversations)
	if n > 0 && c.Conversations[n-1].From == Human {
		n--
	}
	out := Conversation{Conversations: make([]Turn, n)}
	copy(out.Conversations, c.Conversations[:n])
	return out
}
