package hours

import (
	"reflect"
	"testing"

	"github.com/usps-dataeng/versionone-dashboard/domain"
)

func sampleTask() domain.Task {
	return domain.Task{
		ID:             "T1",
		Title:          "Task",
		Owner:          "alice",
		EstimatedHours: 10,
		RemainingHours: 4,
		ProjectHours: map[string]float64{
			"CDAS-6441":    3.0,
			"EDS-4834":     0.0,
			"EEB-9372":     5.5,
			"UAP-SPM-9442": 0,
			"UAP-IV-9443":  0,
			"UAPSAL-9402":  0,
		},
	}
}

func TestDeriveMetrics(t *testing.T) {
	derived := DeriveMetrics([]domain.Task{sampleTask()})

	task := derived[0]
	if task.CompletedHours != 6.0 {
		t.Fatalf("completed = %v, want 6.0", task.CompletedHours)
	}
	if task.ProgressPercent != 60.0 {
		t.Fatalf("progress = %v, want 60.0", task.ProgressPercent)
	}
	if task.TotalProjectHours != 8.5 {
		t.Fatalf("total project hours = %v, want 8.5", task.TotalProjectHours)
	}
}

func TestDeriveMetricsIdempotent(t *testing.T) {
	once := DeriveMetrics([]domain.Task{sampleTask()})
	twice := DeriveMetrics(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("derivation must be idempotent:\nonce:  %#v\ntwice: %#v", once[0], twice[0])
	}
}

func TestDeriveMetricsNegativeCompletedNotClamped(t *testing.T) {
	task := sampleTask()
	task.EstimatedHours = 4
	task.RemainingHours = 10

	derived := DeriveMetrics([]domain.Task{task})
	if derived[0].CompletedHours != -6.0 {
		t.Fatalf("completed = %v, want -6.0 (no clamp)", derived[0].CompletedHours)
	}
	if derived[0].ProgressPercent != -150.0 {
		t.Fatalf("progress = %v, want -150.0", derived[0].ProgressPercent)
	}
}

func TestDeriveMetricsDoesNotMutateInput(t *testing.T) {
	input := []domain.Task{sampleTask()}
	_ = DeriveMetrics(input)
	if input[0].CompletedHours != 0 || input[0].TotalProjectHours != 0 {
		t.Fatalf("input batch was mutated: %+v", input[0])
	}
}

func TestAllocatePlanningLevel(t *testing.T) {
	task := sampleTask()
	task.PlanningLevel = "EEB-9372"
	derived := AllocatePlanningLevel(DeriveMetrics([]domain.Task{task}))

	got := derived[0]
	if got.ProjectHours["EEB-9372"] != 6.0 {
		t.Fatalf("planning-level code should carry completed hours, got %v", got.ProjectHours["EEB-9372"])
	}
	for _, code := range domain.ProjectCodes {
		if code == "EEB-9372" {
			continue
		}
		if got.ProjectHours[code] != 0 {
			t.Fatalf("code %s should be zeroed, got %v", code, got.ProjectHours[code])
		}
	}
	if got.TotalProjectHours != 6.0 {
		t.Fatalf("total must be recomputed after allocation, got %v", got.TotalProjectHours)
	}
}

func TestAllocatePlanningLevelUnknownCode(t *testing.T) {
	task := sampleTask()
	task.PlanningLevel = "NOT-A-CODE"
	derived := AllocatePlanningLevel([]domain.Task{task})
	if derived[0].TotalProjectHours != 0 {
		t.Fatalf("unknown planning level allocates nothing, got %v", derived[0].TotalProjectHours)
	}
}

func TestMergeSnapshotsKeepLastByID(t *testing.T) {
	older := []domain.Task{
		{ID: "T1", Title: "old title", RemainingHours: 8},
		{ID: "T2", Title: "untouched"},
	}
	newer := []domain.Task{
		{ID: "T1", Title: "new title", RemainingHours: 2},
		{ID: "T3", Title: "brand new"},
	}

	merged := MergeSnapshots(older, newer)
	if len(merged) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(merged))
	}
	if merged[0].Title != "new title" || merged[0].RemainingHours != 2 {
		t.Fatalf("last snapshot must win per ID: %+v", merged[0])
	}
	if merged[1].ID != "T2" || merged[2].ID != "T3" {
		t.Fatalf("merge must keep first-appearance order: %v %v", merged[1].ID, merged[2].ID)
	}
}
