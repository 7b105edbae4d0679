package box

// Invocation statuses accepted by the skill invocation endpoint.
const (
	InvocationInvoked          = "invoked"
	InvocationProcessing       = "processing"
	InvocationSuccess          = "success"
	InvocationTransientFailure = "transient_failure"
	InvocationPermanentFailure = "permanent_failure"
)

// Card types.
const (
	CardTypeStatus     = "status"
	CardTypeTranscript = "transcript"
)

// SkillCard is a status or transcript card attached to a file.
type SkillCard struct {
	Type          string      `json:"type"`
	SkillCardType string      `json:"skill_card_type"`
	Title         CardTitle   `json:"skill_card_title"`
	Skill         Reference   `json:"skill"`
	Invocation    Reference   `json:"invocation"`
	Status        *CardStatus `json:"status,omitempty"`
	Entries       []CardEntry `json:"entries,omitempty"`
}

// CardTitle is the card heading; Code is a stable slug.
type CardTitle struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Reference points at a skill, invocation or file.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// CardStatus is the body of a status card.
type CardStatus struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CardEntry is one transcript card line.
type CardEntry struct {
	Text string `json:"text"`
}

// SkillInvocationUpdate is the body of PUT /skill_invocations/{skill_id}.
type SkillInvocationUpdate struct {
	Status   string       `json:"status"`
	Metadata CardMetadata `json:"metadata"`
	File     Reference    `json:"file"`
}

// CardMetadata wraps the cards list.
type CardMetadata struct {
	Cards []SkillCard `json:"cards"`
}
