package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"github.com/usps-dataeng/versionone-dashboard/domain"
)

type fakeQueue struct {
	mu       sync.Mutex
	inFlight int
	max      int
	count    int
	failAt   int
	sleep    time.Duration
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{failAt: -1, sleep: 1 * time.Millisecond}
}

func (f *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	f.mu.Lock()
	idx := f.count
	f.count++
	f.inFlight++
	if f.inFlight > f.max {
		f.max = f.inFlight
	}
	f.mu.Unlock()

	if f.sleep > 0 {
		select {
		case <-time.After(f.sleep):
		case <-ctx.Done():
			f.mu.Lock()
			f.inFlight--
			f.mu.Unlock()
			return azqueue.EnqueueMessagesResponse{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.failAt >= 0 && idx == f.failAt {
		return azqueue.EnqueueMessagesResponse{}, errors.New("enqueue failure")
	}

	return azqueue.EnqueueMessagesResponse{}, nil
}

func (f *fakeQueue) GetProperties(ctx context.Context, o *azqueue.GetQueuePropertiesOptions) (azqueue.GetQueuePropertiesResponse, error) {
	return azqueue.GetQueuePropertiesResponse{}, nil
}

func TestDecodeRosterEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"roster","RowKey":"alice","ContractorGroup":"GroupX","ProjectBaseline":"{\"EEB-9372\":120,\"EDS-4834\":40}"}`)
	e, err := decodeRosterEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Owner != "alice" || e.ContractorGroup != "GroupX" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ProjectBaseline["EEB-9372"] != 120 || e.ProjectBaseline["EDS-4834"] != 40 {
		t.Fatalf("unexpected baseline: %+v", e.ProjectBaseline)
	}
}

func TestDecodeRosterEntityBlankBaseline(t *testing.T) {
	data := []byte(`{"PartitionKey":"roster","RowKey":"bob","ContractorGroup":"GroupY","ProjectBaseline":""}`)
	e, err := decodeRosterEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.ProjectBaseline != nil {
		t.Fatalf("expected nil baseline, got %+v", e.ProjectBaseline)
	}
}

func TestDecodeRosterEntityMalformedBaseline(t *testing.T) {
	data := []byte(`{"PartitionKey":"roster","RowKey":"carol","ContractorGroup":"GroupZ","ProjectBaseline":"not json"}`)
	e, err := decodeRosterEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Owner != "carol" || e.ProjectBaseline != nil {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestDecodeSnapshotEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"weekly","RowKey":"T-1","Data":"{\"id\":\"T-1\",\"estimatedHours\":10,\"completedHours\":6}"}`)
	task, err := decodeSnapshotEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.ID != "T-1" || task.EstimatedHours != 10 || task.CompletedHours != 6 {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestDecodeSnapshotEntityBadPayload(t *testing.T) {
	data := []byte(`{"PartitionKey":"weekly","RowKey":"T-1","Data":"not json"}`)
	if _, err := decodeSnapshotEntity(data); err == nil {
		t.Fatal("expected error for malformed task payload")
	}
}

func TestEnqueueCommandsUsesConcurrency(t *testing.T) {
	fq := newFakeQueue()
	store := &Storage{
		commandQueue:     fq,
		queueConcurrency: 4,
	}
	cmds := make([]domain.Command, 8)
	for i := range cmds {
		cmds[i] = domain.Command{IdempotencyKey: "k"}
	}

	if err := store.EnqueueCommands(context.Background(), "user", cmds); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if fq.max < 2 {
		t.Fatalf("expected concurrent sends, max in flight: %d", fq.max)
	}
	if fq.count != len(cmds) {
		t.Fatalf("expected %d sends, got %d", len(cmds), fq.count)
	}
}

func TestEnqueueCommandsPropagatesErrors(t *testing.T) {
	fq := newFakeQueue()
	fq.failAt = 2
	store := &Storage{
		commandQueue:     fq,
		queueConcurrency: 3,
	}
	cmds := make([]domain.Command, 6)
	for i := range cmds {
		cmds[i] = domain.Command{IdempotencyKey: "k"}
	}

	err := store.EnqueueCommands(context.Background(), "user", cmds)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEnqueueCommandsSequentialWhenConfigured(t *testing.T) {
	fq := newFakeQueue()
	store := &Storage{
		commandQueue:     fq,
		queueConcurrency: 1,
	}
	cmds := make([]domain.Command, 5)
	for i := range cmds {
		cmds[i] = domain.Command{IdempotencyKey: "k"}
	}

	if err := store.EnqueueCommands(context.Background(), "user", cmds); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if fq.max != 1 {
		t.Fatalf("expected sequential sends, observed max in flight: %d", fq.max)
	}
}

func TestQueueConcurrencyForCPU(t *testing.T) {
	tests := []struct {
		name string
		cpu  int
		want int
	}{
		{name: "below minimum", cpu: 0, want: defaultQueueConcurrency},
		{name: "single cpu", cpu: 1, want: queuePerCPU},
		{name: "multi cpu scale", cpu: 4, want: 40},
		{name: "cap applied", cpu: 32, want: maxQueueConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queueConcurrencyForCPU(tt.cpu)
			if got != tt.want {
				t.Fatalf("queueConcurrencyForCPU(%d) = %d, want %d", tt.cpu, got, tt.want)
			}
		})
	}
}
