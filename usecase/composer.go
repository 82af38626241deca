package usecase

import "strings"

// ReplyCategory identifies which template a transcription maps to
type ReplyCategory string

const (
	ReplyCategoryAnxiety ReplyCategory = "anxiety"
	ReplyCategorySadness ReplyCategory = "sadness"
	ReplyCategoryStress  ReplyCategory = "stress"
	ReplyCategoryHelp    ReplyCategory = "help"
	ReplyCategoryDefault ReplyCategory = "default"
)

type replyRule struct {
	category ReplyCategory
	keywords []string
	reply    string
}

// Rules are checked in order; the first match wins.
var replyRules = []replyRule{
	{
		category: ReplyCategoryAnxiety,
		keywords: []string{"anxious", "anxiety", "worried"},
		reply:    "I hear that you're feeling anxious. Let's take a moment to breathe together. What specific thoughts are contributing to this feeling?",
	},
	{
		category: ReplyCategorySadness,
		keywords: []string{"sad", "depressed"},
		reply:    "I sense that you're going through a difficult time. It's okay to feel this way. Would you like to talk about what's been on your mind?",
	},
	{
		category: ReplyCategoryStress,
		keywords: []string{"stress", "overwhelmed"},
		reply:    "Stress can be really challenging. Let's break this down together. What's the most pressing concern right now?",
	},
	{
		category: ReplyCategoryHelp,
		keywords: []string{"help", "support"},
		reply:    "I'm here to support you. What would be most helpful for you right now?",
	},
}

const defaultReply = "Thank you for sharing that with me. I'm listening and here to support you. Would you like to explore this further?"

// ResponseComposer turns a transcription into a short empathetic reply
type ResponseComposer struct{}

// NewResponseComposer creates a response composer
func NewResponseComposer() *ResponseComposer {
	return &ResponseComposer{}
}

// Compose returns the reply for transcription. Sentiment is accepted for
// future weighting and does not change the outcome.
func (c *ResponseComposer) Compose(transcription string, sentiment map[string]any) string {
	_, reply := c.Classify(transcription)
	return reply
}

// Classify returns the matched category and its template
func (c *ResponseComposer) Classify(transcription string) (ReplyCategory, string) {
	lower := strings.ToLower(transcription)
	for _, rule := range replyRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category, rule.reply
			}
		}
	}
	return ReplyCategoryDefault, defaultReply
}
