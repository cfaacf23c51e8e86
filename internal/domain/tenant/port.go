package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Repo reads tenant configuration. All writes happen in the admin surface,
// outside this engine.
type Repo interface {
	ListWorkspaces(ctx context.Context) ([]*Workspace, error)
	GetWorkspace(ctx context.Context, id uuid.UUID) (*Workspace, error)
	GetCondition(ctx context.Context, workspaceID uuid.UUID) (*Condition, error)
	ListActiveDepartments(ctx context.Context, workspaceID uuid.UUID) ([]*Department, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
}
