package services

import (
	"fmt"

	"github.com/yukikurage/task-tracker-api/internal/models"
)

// EditPolicy decides who may edit a task's fields.
type EditPolicy string

const (
	// EditPolicyAnyUser lets any authenticated user edit any task.
	EditPolicyAnyUser EditPolicy = "any-user"
	// EditPolicyCreatorOnly restricts edits to the task creator.
	EditPolicyCreatorOnly EditPolicy = "creator-only"
)

// StatusPolicy decides who may change a task's status.
type StatusPolicy string

const (
	// StatusPolicyAssigneeOnly restricts status changes to the assignee.
	StatusPolicyAssigneeOnly StatusPolicy = "assignee-only"
	// StatusPolicyAssigneeOrCreator also lets the creator change status.
	StatusPolicyAssigneeOrCreator StatusPolicy = "assignee-or-creator"
)

// Policies groups the task authorization rules.
type Policies struct {
	Edit   EditPolicy
	Status StatusPolicy
}

// DefaultPolicies returns the permissive edit and assignee-only status rules.
func DefaultPolicies() Policies {
	return Policies{
		Edit:   EditPolicyAnyUser,
		Status: StatusPolicyAssigneeOnly,
	}
}

// ParsePolicies converts configuration values into Policies.
func ParsePolicies(edit, status string) (Policies, error) {
	p := Policies{Edit: EditPolicy(edit), Status: StatusPolicy(status)}

	switch p.Edit {
	case EditPolicyAnyUser, EditPolicyCreatorOnly:
	default:
		return Policies{}, fmt.Errorf("unknown edit policy %q", edit)
	}
	switch p.Status {
	case StatusPolicyAssigneeOnly, StatusPolicyAssigneeOrCreator:
	default:
		return Policies{}, fmt.Errorf("unknown status policy %q", status)
	}
	return p, nil
}

// CanEdit reports whether callerID may edit task.
func (p Policies) CanEdit(task *models.Task, callerID string) bool {
	switch p.Edit {
	case EditPolicyCreatorOnly:
		return task.CreatorID == callerID
	default:
		return true
	}
}

// CanChangeStatus reports whether callerID may change task's status.
func (p Policies) CanChangeStatus(task *models.Task, callerID string) bool {
	if task.AssignedToID == callerID {
		return true
	}
	return p.Status == StatusPolicyAssigneeOrCreator && task.CreatorID == callerID
}
