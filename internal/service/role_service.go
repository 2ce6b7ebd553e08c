package service

import (
	"context"
	"fmt"

	"hrops/internal/model"
	"hrops/internal/policy"
	"hrops/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	roleRepo  repository.RoleRepository
	txManager repository.TransactionManager
}

func NewRoleService(roleRepo repository.RoleRepository, txManager repository.TransactionManager) RoleService {
	return &roleService{roleRepo: roleRepo, txManager: txManager}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	permIDs := make([]uuid.UUID, 0, len(req.Permissions))
	for _, pid := range req.Permissions {
		parsed, parseErr := uuid.Parse(pid)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid permission id '%s': %w", pid, parseErr)
		}
		permIDs = append(permIDs, parsed)
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.roleRepo.Create(txCtx, &role); createErr != nil {
			return fmt.Errorf("failed to create role: %w", createErr)
		}
		if len(permIDs) > 0 {
			if assocErr := s.roleRepo.AssociatePermissions(txCtx, role.ID, permIDs); assocErr != nil {
				return fmt.Errorf("failed to assign permissions: %w", assocErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload with permissions
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	role.Name = req.Name
	role.Description = req.Description

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found: %w", err)
	}

	if role.IsSystem {
		return fmt.Errorf("cannot delete system role '%s'", role.Name)
	}

	// Drop the permission links along with the role
	if err := s.roleRepo.UpdatePermissions(ctx, roleID, nil); err != nil {
		return fmt.Errorf("failed to clear permissions: %w", err)
	}

	if err := s.roleRepo.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	id, err := uuid.Parse(roleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	permIDs := make([]uuid.UUID, 0, len(req.PermissionIDs))
	for _, pid := range req.PermissionIDs {
		parsed, parseErr := uuid.Parse(pid)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid permission id '%s': %w", pid, parseErr)
		}
		permIDs = append(permIDs, parsed)
	}

	if err := s.roleRepo.UpdatePermissions(ctx, id, permIDs); err != nil {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}

	return s.GetRole(ctx, roleID)
}

// SeedDefaultRolesAndPermissions creates the permission catalog and the six system
// roles if they are not already present. Safe to run on every startup.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	defaultPermissions := []model.Permission{
		{Code: "dashboard.read", Name: "View dashboard and pending counts", Group: "dashboard"},
		{Code: "requests.read", Name: "View request lists", Group: "requests"},
		{Code: "requests.submit", Name: "Submit requests", Group: "requests"},
		{Code: "requests.decide", Name: "Approve / reject requests", Group: "requests"},
		{Code: "requests.advance", Name: "Advance approved requests", Group: "requests"},
		{Code: policy.PermApproveLeave, Name: "Approve leave requests", Group: "requests"},
		{Code: policy.PermViewAll, Name: "View every request", Group: "requests"},
		{Code: "tasks.read", Name: "View tasks", Group: "tasks"},
		{Code: "tasks.write", Name: "Create and update tasks", Group: "tasks"},
		{Code: "documents.read", Name: "View documents", Group: "documents"},
		{Code: "documents.write", Name: "Create documents", Group: "documents"},
		{Code: "users.read", Name: "View users", Group: "users"},
		{Code: "users.write", Name: "Manage users", Group: "users"},
		{Code: "users.delete", Name: "Delete users", Group: "users"},
		{Code: "audit.read", Name: "View activity history", Group: "audit"},
		{Code: "roles.manage", Name: "Manage roles and permissions", Group: "roles"},
	}

	permByCode := make(map[string]uuid.UUID, len(defaultPermissions))
	for i := range defaultPermissions {
		p := &defaultPermissions[i]
		if err := s.roleRepo.FindOrCreatePermission(ctx, p); err != nil {
			return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
		}
		permByCode[p.Code] = p.ID
	}

	roleDefinitions := []struct {
		Name        string
		Description string
		PermCodes   []string
	}{
		{
			Name:        policy.RoleAdmin,
			Description: "Full system access",
			PermCodes: []string{
				"dashboard.read",
				"requests.read", "requests.submit", "requests.decide", "requests.advance",
				policy.PermApproveLeave, policy.PermViewAll,
				"tasks.read", "tasks.write",
				"documents.read", "documents.write",
				"users.read", "users.write", "users.delete",
				"audit.read", "roles.manage",
			},
		},
		{
			Name:        policy.RoleHRAdmin,
			Description: "HR administrator: decides department, HR and document requests",
			PermCodes: []string{
				"dashboard.read",
				"requests.read", "requests.submit", "requests.decide", "requests.advance",
				policy.PermApproveLeave, policy.PermViewAll,
				"tasks.read", "tasks.write",
				"documents.read", "documents.write",
				"users.read", "users.write",
				"audit.read",
			},
		},
		{
			Name:        policy.RoleSupervisor,
			Description: "Supervisor: decides task and leave requests",
			PermCodes: []string{
				"dashboard.read",
				"requests.read", "requests.submit", "requests.decide",
				policy.PermApproveLeave,
				"tasks.read", "tasks.write",
				"documents.read",
				"audit.read",
			},
		},
		{
			Name:        policy.RoleLogisticsManager,
			Description: "Logistics manager: decides and completes procurement requests",
			PermCodes: []string{
				"dashboard.read",
				"requests.read", "requests.submit", "requests.decide", "requests.advance",
				"tasks.read",
				"documents.read",
			},
		},
		{
			Name:        policy.RoleProcurement,
			Description: "Procurement clerk: moves approved purchases along",
			PermCodes: []string{
				"dashboard.read",
				"requests.read", "requests.submit", "requests.advance",
				"documents.read",
			},
		},
		{
			Name:        policy.RoleEmployee,
			Description: "Employee: submits requests and follows their own history",
			PermCodes: []string{
				"requests.read", "requests.submit",
				"tasks.read",
				"documents.read",
			},
		},
	}

	for _, def := range roleDefinitions {
		role, err := s.roleRepo.FindByName(ctx, def.Name)
		if err != nil {
			role = &model.Role{
				Name:        def.Name,
				Description: def.Description,
				IsSystem:    true,
			}
			if createErr := s.roleRepo.Create(ctx, role); createErr != nil {
				return fmt.Errorf("failed to seed role '%s': %w", def.Name, createErr)
			}
		}

		permIDs := make([]uuid.UUID, 0, len(def.PermCodes))
		for _, code := range def.PermCodes {
			if id, ok := permByCode[code]; ok {
				permIDs = append(permIDs, id)
			}
		}
		if err := s.roleRepo.UpdatePermissions(ctx, role.ID, permIDs); err != nil {
			return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Name, err)
		}
	}

	return nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
