package ai

import (
	"fmt"
	"strings"
)

// BuildInstruction composes the single instruction string for a pending bot
// reply. It embeds everything the completion endpoint gets to see: the bot's
// name, its configured prompt template, and the asking user's name and
// message.
func BuildInstruction(botName, promptTemplate, asker, userBody string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the bot %q.", botName)
	if template := strings.TrimSpace(promptTemplate); template != "" {
		fmt.Fprintf(&b, " Your configured behavior: %s", template)
	}
	fmt.Fprintf(&b, "\n%s wrote: %s", asker, userBody)
	fmt.Fprintf(&b, "\nWrite the reply %q would post in the channel.", botName)

	return b.String()
}
