package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	startIn  *transcribe.StartTranscriptionJobInput
	startErr error
	job      *types.TranscriptionJob
	getErr   error
}

func (f *fakeAPI) StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error) {
	f.startIn = in
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &transcribe.StartTranscriptionJobOutput{}, nil
}

func (f *fakeAPI) GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &transcribe.GetTranscriptionJobOutput{TranscriptionJob: f.job}, nil
}

func TestStartBuildsInput(t *testing.T) {
	api := &fakeAPI{}
	b := NewAWSBackend(api)
	err := b.Start(context.Background(), Request{
		JobName:      "standup_1a2b3c4d",
		MediaURI:     "https://dl.example/standup.mp3",
		MediaFormat:  "mp3",
		LanguageCode: "en-US",
		OutputBucket: "meetings",
		OutputKey:    "meetings_summary/standup_1a2b3c4d.json",
	})
	require.NoError(t, err)

	in := api.startIn
	require.NotNil(t, in)
	assert.Equal(t, "standup_1a2b3c4d", aws.ToString(in.TranscriptionJobName))
	assert.Equal(t, "https://dl.example/standup.mp3", aws.ToString(in.Media.MediaFileUri))
	assert.Equal(t, types.MediaFormatMp3, in.MediaFormat)
	assert.Equal(t, types.LanguageCodeEnUs, in.LanguageCode)
	assert.Equal(t, "meetings", aws.ToString(in.OutputBucketName))
	assert.Equal(t, "meetings_summary/standup_1a2b3c4d.json", aws.ToString(in.OutputKey))
}

func TestStartConflict(t *testing.T) {
	api := &fakeAPI{startErr: &types.ConflictException{Message: aws.String("exists")}}
	err := NewAWSBackend(api).Start(context.Background(), Request{JobName: "j"})
	require.ErrorIs(t, err, ErrJobExists)
}

func TestStartOtherError(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("throttled")}
	err := NewAWSBackend(api).Start(context.Background(), Request{JobName: "j"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobExists)
	assert.ErrorContains(t, err, "throttled")
}

func TestStatus(t *testing.T) {
	api := &fakeAPI{job: &types.TranscriptionJob{
		TranscriptionJobStatus: types.TranscriptionJobStatusFailed,
		FailureReason:          aws.String("bad media"),
	}}
	st, err := NewAWSBackend(api).Status(context.Background(), "j")
	require.NoError(t, err)
	assert.Equal(t, Status{JobName: "j", State: "FAILED", FailureReason: "bad media"}, st)

	api.getErr = errors.New("nope")
	_, err = NewAWSBackend(api).Status(context.Background(), "j")
	require.ErrorContains(t, err, "nope")
}
