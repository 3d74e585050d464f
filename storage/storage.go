package storage

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"github.com/usps-dataeng/versionone-dashboard/domain"
)

const rosterPartition = "roster"

const (
	defaultQueueConcurrency = 8
	queuePerCPU             = 10
	maxQueueConcurrency     = 64
)

func queueConcurrencyForCPU(cpu int) int {
	if cpu < 1 {
		return defaultQueueConcurrency
	}
	n := cpu * queuePerCPU
	if n > maxQueueConcurrency {
		return maxQueueConcurrency
	}
	return n
}

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	GetProperties(ctx context.Context, o *azqueue.GetQueuePropertiesOptions) (azqueue.GetQueuePropertiesResponse, error)
}

// Storage provides access to underlying persistence mechanisms.
type Storage struct {
	rosterTable      *aztables.Client
	snapshotTable    *aztables.Client
	commandQueue     queueClient
	queueConcurrency int
}

// New creates a Storage instance from the given connection string.
func New(connStr, rosterTable, snapshotTable, commandQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	rt := svc.NewClient(rosterTable)
	st := svc.NewClient(snapshotTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	cq, err := azqueue.NewQueueClientFromConnectionString(connStr, commandQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		rosterTable:      rt,
		snapshotTable:    st,
		commandQueue:     cq,
		queueConcurrency: queueConcurrencyForCPU(runtime.NumCPU()),
	}, nil
}

type rosterEntity struct {
	aztables.Entity
	ContractorGroup string `json:"ContractorGroup"`
	ProjectBaseline string `json:"ProjectBaseline"`
}

// decodeRosterEntity maps a table entity onto a roster entry. The RowKey
// doubles as the owner name. ProjectBaseline is stored as a JSON object in a
// string column; a blank or malformed baseline degrades to nil instead of
// failing the page.
func decodeRosterEntity(data []byte) (domain.RosterEntry, error) {
	var ent rosterEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.RosterEntry{}, err
	}
	entry := domain.RosterEntry{
		Owner:           ent.RowKey,
		ContractorGroup: ent.ContractorGroup,
	}
	if ent.ProjectBaseline != "" {
		var baseline map[string]float64
		if err := json.Unmarshal([]byte(ent.ProjectBaseline), &baseline); err == nil {
			entry.ProjectBaseline = baseline
		}
	}
	return entry, nil
}

// FetchRoster retrieves every contractor roster entry.
func (s *Storage) FetchRoster(ctx context.Context) ([]domain.RosterEntry, error) {
	filter := "PartitionKey eq '" + rosterPartition + "'"
	pager := s.rosterTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	entries := []domain.RosterEntry{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			entry, err := decodeRosterEntity(e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type snapshotEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

// decodeSnapshotEntity unwraps the task JSON stored in the entity's Data
// column.
func decodeSnapshotEntity(data []byte) (domain.Task, error) {
	var ent snapshotEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	var task domain.Task
	if err := json.Unmarshal([]byte(ent.Data), &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// FetchSnapshot retrieves the derived task set stored under the given
// snapshot name, one entity per task.
func (s *Storage) FetchSnapshot(ctx context.Context, snapshot string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + snapshot + "'"
	pager := s.snapshotTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, err := decodeSnapshotEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// SaveSnapshot upserts the derived task set under the given snapshot name.
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot string, tasks []domain.Task) error {
	for _, task := range tasks {
		data, err := json.Marshal(task)
		if err != nil {
			return err
		}
		ent, err := json.Marshal(snapshotEntity{
			Entity: aztables.Entity{PartitionKey: snapshot, RowKey: task.ID},
			Data:   string(data),
		})
		if err != nil {
			return err
		}
		if _, err := s.snapshotTable.UpsertEntity(ctx, ent, nil); err != nil {
			return err
		}
	}
	return nil
}

// EnqueueCommands sends the given commands to the command queue, fanning
// out up to queueConcurrency sends at a time. The first error wins; the
// remaining sends are cancelled.
func (s *Storage) EnqueueCommands(ctx context.Context, userID string, cmds []domain.Command) error {
	if len(cmds) == 0 {
		return nil
	}
	concurrency := s.queueConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(cmds) {
		concurrency = len(cmds)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, concurrency)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, cmd := range cmds {
		env := domain.CommandEnvelope{UserID: userID, Command: cmd}
		data, err := json.Marshal(env)
		if err != nil {
			fail(err)
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(msg string) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.commandQueue.EnqueueMessage(ctx, msg, nil); err != nil {
				fail(err)
			}
		}(string(data))
	}

	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// Healthcheck verifies the command queue is reachable.
func (s *Storage) Healthcheck(ctx context.Context) error {
	_, err := s.commandQueue.GetProperties(ctx, nil)
	return err
}
