package epg

import "strings"

// matchStrategy is one stage of the matching cascade. Strategies are pure:
// the same query and candidate list always yield the same channel.
type matchStrategy func(query string, channels []*Channel) *Channel

// matchCascade is the fixed priority order. Earlier stages are stricter;
// the first hit wins, so an alias or exact-id match can never be shadowed by
// a substring or keyword match.
var matchCascade = []matchStrategy{
	matchAlias,
	matchExactID,
	matchIDVariants,
	matchExactName,
	matchNormalizedName,
	matchSubstring,
	matchKeywords,
}

// FindMatchingChannel resolves an upstream channel identifier or display
// name to a guide channel. Returns nil when no stage matches; that is a
// normal outcome, not an error.
func FindMatchingChannel(query string, channels []*Channel) *Channel {
	query = strings.TrimSpace(query)
	if query == "" || len(channels) == 0 {
		return nil
	}
	for _, strategy := range matchCascade {
		if ch := strategy(query, channels); ch != nil {
			return ch
		}
	}
	return nil
}

// matchAlias consults the curated brand dictionary.
func matchAlias(query string, channels []*Channel) *Channel {
	target := aliasTarget(query)
	if target == "" {
		return nil
	}
	for _, ch := range channels {
		if ch.ID == target || ch.Name == target {
			return ch
		}
	}
	return nil
}

// matchExactID matches the query against channel ids verbatim.
func matchExactID(query string, channels []*Channel) *Channel {
	for _, ch := range channels {
		if ch.ID == query {
			return ch
		}
	}
	return nil
}

// matchIDVariants tries mechanically-derived id spellings seen across
// guide generators.
func matchIDVariants(query string, channels []*Channel) *Channel {
	lower := strings.ToLower(query)
	variants := []string{
		"br#" + lower,
		"br#" + lower + "-hd",
		query + ".br",
	}
	for _, ch := range channels {
		for _, v := range variants {
			if ch.ID == v {
				return ch
			}
		}
	}
	return nil
}

// matchExactName matches display names verbatim.
func matchExactName(query string, channels []*Channel) *Channel {
	for _, ch := range channels {
		if ch.Name == query {
			return ch
		}
	}
	return nil
}

// matchNormalizedName compares names after NormalizeName on both sides.
func matchNormalizedName(query string, channels []*Channel) *Channel {
	normalized := NormalizeName(query)
	if normalized == "" {
		return nil
	}
	for _, ch := range channels {
		if ch.normalizedName == normalized {
			return ch
		}
	}
	return nil
}

// matchSubstring accepts containment in either direction between normalized
// names.
func matchSubstring(query string, channels []*Channel) *Channel {
	normalized := NormalizeName(query)
	if normalized == "" {
		return nil
	}
	for _, ch := range channels {
		if ch.normalizedName == "" {
			continue
		}
		if strings.Contains(ch.normalizedName, normalized) ||
			strings.Contains(normalized, ch.normalizedName) {
			return ch
		}
	}
	return nil
}

// matchKeywords ranks channels by the number of shared query tokens longer
// than three characters and returns the best. Ties keep the earlier channel,
// preserving determinism.
func matchKeywords(query string, channels []*Channel) *Channel {
	var tokens []string
	for _, token := range strings.Fields(NormalizeName(query)) {
		if len(token) > 3 {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var best *Channel
	bestShared := 0
	for _, ch := range channels {
		shared := 0
		for _, token := range tokens {
			if channelHasToken(ch, token) {
				shared++
			}
		}
		if shared > bestShared {
			best = ch
			bestShared = shared
		}
	}
	return best
}

func channelHasToken(ch *Channel, token string) bool {
	for _, t := range strings.Fields(ch.normalizedName) {
		if t == token {
			return true
		}
	}
	return false
}
