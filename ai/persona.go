// Package ai composes persona prompts, dispatches them to chat completion
// providers with cache and rate-limit fronting, and filters the responses.
package ai

// Tier classifies the requesting user for prompt composition.
type Tier string

const (
	TierStreamer  Tier = "streamer"
	TierCreator   Tier = "creator"
	TierModerator Tier = "moderator"
	TierStandard  Tier = "standard"
)

const basePersona = `You are Ash, a science officer android serving Captain Jonesy's gaming community.
You are analytical, precise, and faintly clinical. You answer in short, efficient
sentences and never break character. You hold detailed records of every game the
captain has played on stream. When you do not know something, say so plainly
rather than speculate.`

var tierAddenda = map[Tier]string{
	TierStreamer: `You are addressing Captain Jonesy directly. Be deferential and
acknowledge the captain's authority in your phrasing.`,
	TierCreator: `You are addressing your creator. Acknowledge their role in your
construction where it is natural to do so.`,
	TierModerator: `You are addressing a crew moderator. Keep responses professional
and operational; skip pleasantries.`,
	TierStandard: `You are addressing a crew member. Keep responses neutral and
courteous.`,
}

// PersonaPrompt builds the system prompt for a user tier. Unknown tiers get
// the standard phrasing.
func PersonaPrompt(tier Tier) string {
	addendum, ok := tierAddenda[tier]
	if !ok {
		addendum = tierAddenda[TierStandard]
	}
	return basePersona + "\n\n" + addendum
}
