package cards

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/skillscribe/internal/box"
)

type fakePlatform struct {
	updates  []box.SkillInvocationUpdate
	tokens   []string
	skillIDs []string
	deletes  []string
	err      error
}

func (f *fakePlatform) UpdateSkillInvocation(ctx context.Context, token, skillID string, update box.SkillInvocationUpdate) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, update)
	f.tokens = append(f.tokens, token)
	f.skillIDs = append(f.skillIDs, skillID)
	return json.RawMessage(`{"ok":true}`), nil
}

func (f *fakePlatform) DeleteSkillCards(ctx context.Context, token, fileID string) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, fileID)
	return nil
}

var target = Target{FileID: "f1", SkillID: "s1", InvocationID: "inv1", WriteToken: "wt"}

func TestTitleCode(t *testing.T) {
	assert.Equal(t, "skill_bedrock_skill", TitleCode("Bedrock Skill"))
	assert.Equal(t, "skill_meeting_summary", TitleCode(" Meeting Summary "))
}

func TestPlatformCode(t *testing.T) {
	assert.Equal(t, "skills_external_auth_error", PlatformCode(ExternalAuthError))
	assert.Equal(t, "skills_invalid_file_format", PlatformCode(InvalidFileFormat))
	assert.Equal(t, "skills_unknown_error", PlatformCode(ErrorCode("SOMETHING_NEW")))
}

func TestProcessingCard(t *testing.T) {
	p := &fakePlatform{}
	d := NewDispatcher(p, "Bedrock Skill")
	receipt, err := d.Processing(context.Background(), target, "hold on")
	require.NoError(t, err)

	require.Len(t, p.updates, 1)
	assert.Equal(t, "wt", p.tokens[0])
	assert.Equal(t, "s1", p.skillIDs[0])
	update := p.updates[0]
	assert.Equal(t, box.InvocationProcessing, update.Status)
	assert.Equal(t, box.Reference{Type: "file", ID: "f1"}, update.File)
	require.Len(t, update.Metadata.Cards, 1)
	card := update.Metadata.Cards[0]
	assert.Equal(t, box.CardTypeStatus, card.SkillCardType)
	assert.Equal(t, "skill_bedrock_skill", card.Title.Code)
	assert.Equal(t, "inv1", card.Invocation.ID)
	assert.Equal(t, &box.CardStatus{Code: "processing", Message: "hold on"}, card.Status)
	assert.JSONEq(t, `{"ok":true}`, string(receipt.Response))
}

func TestErrorCardStatuses(t *testing.T) {
	p := &fakePlatform{}
	d := NewDispatcher(p, "Bedrock Skill")

	_, err := d.Error(context.Background(), target, InvalidFileFormat, "invalid file format")
	require.NoError(t, err)
	_, err = d.Error(context.Background(), target, FileProcessingError, "backend down")
	require.NoError(t, err)

	require.Len(t, p.updates, 2)
	assert.Equal(t, box.InvocationPermanentFailure, p.updates[0].Status)
	assert.Equal(t, "skills_invalid_file_format", p.updates[0].Metadata.Cards[0].Status.Code)
	assert.Equal(t, box.InvocationTransientFailure, p.updates[1].Status)
	assert.Equal(t, "skills_file_processing_error", p.updates[1].Metadata.Cards[0].Status.Code)
}

func TestResultCard(t *testing.T) {
	p := &fakePlatform{}
	d := NewDispatcher(p, "Bedrock Skill")
	receipt, err := d.Result(context.Background(), target, "hello world", "a greeting")
	require.NoError(t, err)

	require.Len(t, p.updates, 1)
	assert.Equal(t, box.InvocationSuccess, receipt.Status)
	cards := p.updates[0].Metadata.Cards
	require.Len(t, cards, 2)
	assert.Equal(t, "skill_meeting_transcript", cards[0].Title.Code)
	assert.Equal(t, []box.CardEntry{{Text: "hello world"}}, cards[0].Entries)
	assert.Equal(t, "skill_meeting_summary", cards[1].Title.Code)
	assert.Equal(t, []box.CardEntry{{Text: "a greeting"}}, cards[1].Entries)
	assert.Nil(t, cards[1].Status)
}

func TestDispatcherPropagatesErrors(t *testing.T) {
	p := &fakePlatform{err: errors.New("boom")}
	d := NewDispatcher(p, "Bedrock Skill")
	_, err := d.Processing(context.Background(), target, "x")
	require.ErrorContains(t, err, "boom")
	require.ErrorContains(t, d.Clear(context.Background(), target), "boom")
}
