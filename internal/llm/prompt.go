package llm

import (
	"fmt"
	"strings"
)

// Variant selects the summary instruction placed after the transcript.
type Variant string

const (
	VariantGeneral        Variant = "general"
	VariantThreeSentences Variant = "three_sentences"
	VariantPerSpeaker     Variant = "per_speaker"
	VariantActionItems    Variant = "action_items"
)

var instructions = map[Variant]string{
	VariantGeneral:        "Please summarize the above meeting transcript",
	VariantThreeSentences: "Please summarize the above meeting transcript in 3 sentences",
	VariantPerSpeaker:     "Please summarize the above meeting transcript on a per speaker basis",
	VariantActionItems:    "Please provide the follow ups each person should take away from the above meeting transcript",
}

// ParseVariant accepts the configured variant name; empty means general.
func ParseVariant(name string) (Variant, error) {
	if name == "" {
		return VariantGeneral, nil
	}
	v := Variant(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := instructions[v]; !ok {
		return "", fmt.Errorf("unknown prompt variant %q", name)
	}
	return v, nil
}

// Render wraps transcript in meeting transcript tags followed by the
// variant's instruction. Unknown variants fall back to general.
func Render(v Variant, transcript string) string {
	instruction, ok := instructions[v]
	if !ok {
		instruction = instructions[VariantGeneral]
	}
	return "<meeting transcript>\n" + transcript + "\n</meeting transcript>\n\n" + instruction
}
