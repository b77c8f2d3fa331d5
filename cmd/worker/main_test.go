package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/aryanjamdagni/InvoiceIQ/internal/bootstrap"
	"github.com/aryanjamdagni/InvoiceIQ/internal/extraction"
	"github.com/aryanjamdagni/InvoiceIQ/internal/invoices"
	"github.com/aryanjamdagni/InvoiceIQ/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeStatusClient struct {
	payload extraction.StatusPayload
	err     error
}

func (f fakeStatusClient) StartExtraction(ctx context.Context, userID, sessionID string, files []extraction.UploadFile) (extraction.StartResult, error) {
	return extraction.StartResult{}, errors.New("not used")
}

func (f fakeStatusClient) SessionStatus(ctx context.Context, userID, sessionID string) (extraction.StatusPayload, error) {
	return f.payload, f.err
}

func (f fakeStatusClient) FetchArtifact(ctx context.Context, downloadURL string) (extraction.Artifact, error) {
	return extraction.Artifact{}, errors.New("not used")
}

func newTestApp(t *testing.T, ai extraction.Client) *bootstrap.App {
	t.Helper()
	repo := invoices.NewMemoryRepo()
	if err := repo.CreateMany(context.Background(), []invoices.Invoice{{
		ID:        "inv-1",
		UserID:    "user-1",
		SessionID: "session-1",
		FileName:  "a.pdf",
		Status:    invoices.StatusProcessing,
	}}); err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	return &bootstrap.App{
		InvoicesRepo:   repo,
		InvoiceService: &invoices.Service{Repo: repo, AI: ai},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	app := newTestApp(t, fakeStatusClient{payload: extraction.StatusPayload{
		Status: "completed",
		Files:  map[string]string{"a.pdf": "completed"},
	}})
	msgBody, _ := queue.EncodeMessage(queue.Message{UserID: "user-1", SessionID: "session-1", RequestID: "req-1"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m1"),
		ReceiptHandle: aws.String("r1"),
		Body:          aws.String(string(msgBody)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	app := newTestApp(t, fakeStatusClient{err: errors.New("boom")})
	msgBody, _ := queue.EncodeMessage(queue.Message{UserID: "user-1", SessionID: "session-1", RequestID: "req-2"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m2"),
		ReceiptHandle: aws.String("r2"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	app := newTestApp(t, fakeStatusClient{})
	msg := sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesWhenSessionMissingFromMessage(t *testing.T) {
	client := &fakeSQS{}
	app := newTestApp(t, fakeStatusClient{})
	msgBody, _ := queue.EncodeMessage(queue.Message{RequestID: "req-4"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), app, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}
