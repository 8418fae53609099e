package model

import "testing"

func TestPostStatus_IsEditable(t *testing.T) {
	tests := []struct {
		status   PostStatus
		editable bool
	}{
		{PostDraft, true},
		{PostInReview, false},
		{PostApproved, false},
		{PostScheduled, false},
		{PostPublished, false},
		{PostRejected, true},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsEditable(); got != tt.editable {
				t.Errorf("PostStatus(%q).IsEditable() = %v, want %v", tt.status, got, tt.editable)
			}
			if !tt.status.IsValid() {
				t.Errorf("PostStatus(%q).IsValid() = false", tt.status)
			}
		})
	}

	if PostStatus("ARCHIVED").IsValid() {
		t.Error("unknown status should be invalid")
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskPending, false},
		{TaskCompleted, true},
		{TaskCanceled, true},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("TaskStatus(%q).IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestTask_HasAssignee(t *testing.T) {
	task := &Task{AssigneeIDs: []string{"u1", "u2"}}

	if !task.HasAssignee("u2") {
		t.Error("HasAssignee(u2) = false, want true")
	}
	if task.HasAssignee("u3") {
		t.Error("HasAssignee(u3) = true, want false")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestWorkflowTemplate_IsGlobal(t *testing.T) {
	if !(&WorkflowTemplate{}).IsGlobal() {
		t.Error("template without tenant should be global")
	}
	if (&WorkflowTemplate{TenantID: "t1"}).IsGlobal() {
		t.Error("tenant template should not be global")
	}
}
