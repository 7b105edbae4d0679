// Package transcribe submits speech-to-text jobs whose output lands in the
// blob store under a caller-chosen key.
package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

// ErrJobExists is returned by Start when a job with the same name was already
// submitted.
var ErrJobExists = errors.New("transcription job already exists")

// Request describes one transcription job.
type Request struct {
	JobName      string
	MediaURI     string
	MediaFormat  string
	LanguageCode string
	OutputBucket string
	OutputKey    string
}

// Status is the backend's view of a submitted job.
type Status struct {
	JobName       string
	State         string
	FailureReason string
}

// Backend starts jobs and reports on them.
type Backend interface {
	Start(ctx context.Context, req Request) error
	Status(ctx context.Context, jobName string) (Status, error)
}

// API is the subset of the AWS Transcribe client used here.
type API interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// AWSBackend runs jobs on Amazon Transcribe.
type AWSBackend struct {
	api API
}

// NewAWSBackend wraps an Amazon Transcribe client.
func NewAWSBackend(api API) *AWSBackend {
	return &AWSBackend{api: api}
}

// NewAWSBackendFromConfig builds the client from a loaded AWS config.
func NewAWSBackendFromConfig(cfg aws.Config) *AWSBackend {
	return NewAWSBackend(transcribe.NewFromConfig(cfg))
}

// Start submits req. A name conflict is reported as ErrJobExists.
func (b *AWSBackend) Start(ctx context.Context, req Request) error {
	in := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.JobName),
		Media:                &types.Media{MediaFileUri: aws.String(req.MediaURI)},
		MediaFormat:          types.MediaFormat(req.MediaFormat),
		LanguageCode:         types.LanguageCode(req.LanguageCode),
		OutputBucketName:     aws.String(req.OutputBucket),
		OutputKey:            aws.String(req.OutputKey),
	}
	if _, err := b.api.StartTranscriptionJob(ctx, in); err != nil {
		var conflict *types.ConflictException
		if errors.As(err, &conflict) {
			return fmt.Errorf("%w: %s", ErrJobExists, req.JobName)
		}
		return fmt.Errorf("start transcription job %s: %w", req.JobName, err)
	}
	return nil
}

// Status fetches the current state of jobName.
func (b *AWSBackend) Status(ctx context.Context, jobName string) (Status, error) {
	out, err := b.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return Status{}, fmt.Errorf("get transcription job %s: %w", jobName, err)
	}
	st := Status{JobName: jobName}
	if job := out.TranscriptionJob; job != nil {
		st.State = string(job.TranscriptionJobStatus)
		st.FailureReason = aws.ToString(job.FailureReason)
	}
	return st, nil
}
