package domain

import (
	"fmt"
	"sort"
	"strings"
)

// IntentSet is the set of gateway event families a session declares.
type IntentSet uint32

const (
	IntentGuilds IntentSet = 1 << iota
	IntentGuildMembers
	IntentGuildMessages
	IntentGuildMessageReactions
	IntentMessageContent
)

var intentNames = map[IntentSet]string{
	IntentGuilds:                "guilds",
	IntentGuildMembers:          "members",
	IntentGuildMessages:         "guild-messages",
	IntentGuildMessageReactions: "guild-message-reactions",
	IntentMessageContent:        "message-content",
}

// MinimumIntents is declared by every session.
const MinimumIntents = IntentGuilds

func (s IntentSet) With(others ...IntentSet) IntentSet {
	for _, other := range others {
		s |= other
	}
	return s
}

func (s IntentSet) Has(intent IntentSet) bool {
	return s&intent == intent
}

func (s IntentSet) Names() []string {
	names := make([]string, 0, len(intentNames))
	for intent, name := range intentNames {
		if s.Has(intent) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s IntentSet) String() string {
	return strings.Join(s.Names(), ",")
}

func ParseIntents(raw []string) (IntentSet, error) {
	var set IntentSet
	for _, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		if name == "" {
			continue
		}

		found := false
		for intent, intentName := range intentNames {
			if intentName == name {
				set |= intent
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown intent %q", ErrConfig, value)
		}
	}

	return set, nil
}
