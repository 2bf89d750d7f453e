package mq

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/domain"
)

func TestEventTypeFor(t *testing.T) {
	tests := []struct {
		status domain.JobStatus
		want   MessageType
	}{
		{domain.JobStatusRunning, MessageTypeJobStarted},
		{domain.JobStatusCompleted, MessageTypeJobFinished},
		{domain.JobStatusFailed, MessageTypeJobFinished},
		{domain.JobStatusCancelled, MessageTypeJobCancelled},
		{domain.JobStatusOrphaned, MessageTypeJobOrphaned},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := EventTypeFor(tt.status); got != tt.want {
				t.Errorf("EventTypeFor(%s) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestParsePayload_JobEvent(t *testing.T) {
	code := 1
	job := &domain.Job{
		ID:        uuid.New(),
		ProjectID: "a1b2c3d4",
		StepName:  "remove_chimera",
		ToolName:  "remove_chimera",
		Status:    domain.JobStatusFailed,
		ExitCode:  &code,
	}
	msg := &Message{
		ID:        uuid.NewString(),
		Type:      MessageTypeJobFinished,
		Payload:   NewJobEventPayload(job),
		Timestamp: time.Now(),
	}

	got, err := ParsePayload[JobEventPayload](msg)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if got.JobID != job.ID {
		t.Errorf("JobID = %s, want %s", got.JobID, job.ID)
	}
	if got.Status != domain.JobStatusFailed {
		t.Errorf("Status = %s", got.Status)
	}
	if got.ExitCode == nil || *got.ExitCode != 1 {
		t.Errorf("ExitCode = %v", got.ExitCode)
	}
}

func TestRoutingKeysMatchMessageTypes(t *testing.T) {
	pairs := map[MessageType]RoutingKey{
		MessageTypeJobStarted:   RoutingKeyJobStarted,
		MessageTypeJobFinished:  RoutingKeyJobFinished,
		MessageTypeJobCancelled: RoutingKeyJobCancelled,
		MessageTypeJobOrphaned:  RoutingKeyJobOrphaned,
	}
	for mt, rk := range pairs {
		if string(mt) != string(rk) {
			t.Errorf("message type %s and routing key %s differ", mt, rk)
		}
	}
}
