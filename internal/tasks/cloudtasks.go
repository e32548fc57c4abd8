package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/casefile-ai/claims-backend/internal/config"
)

// CallbackBasePath is the path prefix the queue pushes deliveries to. The
// full target URL is TargetBaseURL + CallbackBasePath + "/" + task name.
const CallbackBasePath = "/internal/tasks"

// QueueExecutor enqueues tasks onto a Cloud Tasks push queue. Deliveries come
// back as authenticated HTTP POSTs carrying an OIDC token minted for the
// configured service account; the callback handler verifies the token before
// dispatching into the shared Registry.
type QueueExecutor struct {
	client           *cloudtasks.Client
	queuePath        string
	targetBaseURL    string
	serviceAccount   string
	audience         string
	dispatchDeadline time.Duration
}

// NewQueueExecutor builds a Cloud Tasks backed executor from config.
func NewQueueExecutor(ctx context.Context, cfg config.TasksConfig) (*QueueExecutor, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("tasks: create cloud tasks client: %w", err)
	}
	return &QueueExecutor{
		client: client,
		queuePath: fmt.Sprintf("projects/%s/locations/%s/queues/%s",
			cfg.Project, cfg.Location, cfg.Queue),
		targetBaseURL:    strings.TrimRight(cfg.TargetBaseURL, "/"),
		serviceAccount:   cfg.ServiceAccount,
		audience:         cfg.Audience,
		dispatchDeadline: cfg.DispatchDeadline,
	}, nil
}

// Enqueue implements Executor.
func (e *QueueExecutor) Enqueue(ctx context.Context, name string, payload any) error {
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}
	task := &taskspb.Task{
		MessageType: &taskspb.Task_HttpRequest{
			HttpRequest: &taskspb.HttpRequest{
				HttpMethod: taskspb.HttpMethod_POST,
				Url:        fmt.Sprintf("%s%s/%s", e.targetBaseURL, CallbackBasePath, name),
				Headers:    map[string]string{"Content-Type": "application/json"},
				Body:       body,
				AuthorizationHeader: &taskspb.HttpRequest_OidcToken{
					OidcToken: &taskspb.OidcToken{
						ServiceAccountEmail: e.serviceAccount,
						Audience:            e.audience,
					},
				},
			},
		},
	}
	if e.dispatchDeadline > 0 {
		task.DispatchDeadline = durationpb.New(e.dispatchDeadline)
	}
	_, err = e.client.CreateTask(ctx, &taskspb.CreateTaskRequest{
		Parent: e.queuePath,
		Task:   task,
	})
	if err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (e *QueueExecutor) Close() error {
	return e.client.Close()
}
