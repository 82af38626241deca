package usecase

import "testing"

func TestResponseComposer_Classify(t *testing.T) {
	composer := NewResponseComposer()

	tests := []struct {
		name          string
		transcription string
		want          ReplyCategory
	}{
		{"anxiety beats stress", "I feel anxious and overwhelmed", ReplyCategoryAnxiety},
		{"worried", "I'm WORRIED about tomorrow", ReplyCategoryAnxiety},
		{"sadness", "I have been so sad lately", ReplyCategorySadness},
		{"depressed", "feeling Depressed", ReplyCategorySadness},
		{"stress", "work stress is piling up", ReplyCategoryStress},
		{"sadness beats help", "I'm sad and need help", ReplyCategorySadness},
		{"help", "can you support me", ReplyCategoryHelp},
		{"default", "the weather is nice", ReplyCategoryDefault},
		{"empty", "", ReplyCategoryDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reply := composer.Classify(tt.transcription)
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.transcription, got, tt.want)
			}
			if reply == "" {
				t.Error("Expected non-empty reply template")
			}
		})
	}
}

func TestResponseComposer_Compose(t *testing.T) {
	composer := NewResponseComposer()

	anxious := composer.Compose("I feel anxious and overwhelmed", map[string]any{})
	if anxious != replyRules[0].reply {
		t.Errorf("Expected anxiety template, got %q", anxious)
	}

	if got := composer.Compose("", nil); got != defaultReply {
		t.Errorf("Expected default template for empty transcription, got %q", got)
	}

	// Deterministic for identical input
	if composer.Compose("so much stress", nil) != composer.Compose("so much stress", nil) {
		t.Error("Compose should be deterministic")
	}
}
